package portal

import (
	"saferoads/models"

	"github.com/shopspring/decimal"
)

// EmergencyContact is a national helpline shown next to the nearby services.
type EmergencyContact struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

var EmergencyContacts = []EmergencyContact{
	{Type: "Police Station", Name: "Central Police Station", Phone: "100"},
	{Type: "Fire Station", Name: "City Fire Brigade", Phone: "101"},
	{Type: "Hospital", Name: "Government General Hospital", Phone: "108"},
	{Type: "Ambulance Service", Name: "Emergency Medical Services", Phone: "102"},
	{Type: "Highway Patrol", Name: "Traffic Control Center", Phone: "103"},
	{Type: "Disaster Management", Name: "Emergency Response Team", Phone: "1078"},
}

// SampleReports seeds the demo session.
func SampleReports() []Report {
	return []Report{
		{Id: 1, Type: "Pothole", Location: "Main Street, Junction 5", Severity: 85, Status: models.StatusPriority, Date: "2026-01-06", Lat: 22.5726, Lng: 88.3639},
		{Id: 2, Type: "Road Crack", Location: "Highway 12, KM 45", Severity: 68, Status: models.StatusPending, Date: "2026-01-05", Lat: 22.5800, Lng: 88.3700},
		{Id: 3, Type: "Flooding Area", Location: "River Road, Bridge Area", Severity: 92, Status: models.StatusPriority, Date: "2026-01-04", Lat: 22.5650, Lng: 88.3580},
		{Id: 4, Type: "AI Detected", Location: "Park Street Crossing", Severity: 78, Status: models.StatusPriority, Date: "2026-01-06", Lat: 22.5750, Lng: 88.3620},
	}
}

func SampleProjects() []Project {
	return []Project{
		{
			Id:         1,
			Name:       "Highway 12 Resurfacing Project",
			Budget:     decimal.NewFromInt(2500000),
			Contractor: "BuildRight Infrastructure Ltd.",
			Materials:  decimal.NewFromInt(1500000),
			Labor:      decimal.NewFromInt(1000000),
			Progress:   65,
			Completion: "2026-03-15",
			Area:       "North District",
			Status:     "In Progress",
		},
		{
			Id:         2,
			Name:       "Main Street Bridge Repair",
			Budget:     decimal.NewFromInt(5000000),
			Contractor: "Elite Construction Co.",
			Materials:  decimal.NewFromInt(3200000),
			Labor:      decimal.NewFromInt(1800000),
			Progress:   40,
			Completion: "2026-06-30",
			Area:       "Central District",
			Status:     "In Progress",
		},
		{
			Id:         3,
			Name:       "Park Avenue Expansion",
			Budget:     decimal.NewFromInt(3800000),
			Contractor: "MetroBuild Solutions",
			Materials:  decimal.NewFromInt(2300000),
			Labor:      decimal.NewFromInt(1500000),
			Progress:   25,
			Completion: "2026-08-20",
			Area:       "South District",
			Status:     "In Progress",
		},
		{
			Id:         4,
			Name:       "River Road Flood Prevention",
			Budget:     decimal.NewFromInt(4200000),
			Contractor: "AquaSafe Engineering",
			Materials:  decimal.NewFromInt(2800000),
			Labor:      decimal.NewFromInt(1400000),
			Progress:   80,
			Completion: "2026-02-28",
			Area:       "West District",
			Status:     "Near Completion",
		},
	}
}
