package models

// IntRange describes a bounded numeric form field.
type IntRange struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

// FormOptions drives the planning form on the client.
type FormOptions struct {
	DefaultOrigin      string   `json:"default_origin"`
	DefaultDestination string   `json:"default_destination"`
	Months             []string `json:"months"`
	Styles             []string `json:"styles"`
	DefaultStyle       string   `json:"default_style"`
	Days               IntRange `json:"days"`
	Travellers         IntRange `json:"travellers"`
	Budget             IntRange `json:"budget"`
	Currency           string   `json:"currency"`
}

var (
	TravelMonths = []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	TravelStyles = []string{"Balanced", "Relaxed", "Adventure", "Food", "Nightlife", "Culture"}
)

// DefaultFormOptions mirrors the binding tags on TripRequest.
func DefaultFormOptions() FormOptions {
	return FormOptions{
		DefaultOrigin:      "Bengaluru",
		DefaultDestination: "Singapore",
		Months:             TravelMonths,
		Styles:             TravelStyles,
		DefaultStyle:       "Balanced",
		Days:               IntRange{Min: 2, Max: 14, Default: 5},
		Travellers:         IntRange{Min: 1, Max: 10, Default: 2},
		Budget:             IntRange{Min: 10000, Max: 500000, Default: 80000},
		Currency:           "INR",
	}
}
