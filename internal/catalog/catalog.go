// Package catalog loads the static business catalog and exposes the
// read-only menu index the extractor and fast-fact rules consume.
package catalog

// Business mirrors the business_data.json structure.
type Business struct {
	BusinessName     string            `json:"business_name"`
	Description      string            `json:"description"`
	Hours            map[string]string `json:"hours"`
	Address          Address           `json:"address"`
	LocationInfo     LocationInfo      `json:"location_info"`
	Services         map[string]bool   `json:"services"`
	MenuSections     []MenuSection     `json:"menu_sections"`
	FAQ              []FAQ             `json:"faq"`
	Policies         map[string]string `json:"policies"`
	ReservationRules ReservationRules  `json:"reservation_rules"`
	SpecialNotes     []string          `json:"special_notes"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Phone   string `json:"phone"`
	Website string `json:"website,omitempty"`
}

type LocationInfo struct {
	Parking         string `json:"parking,omitempty"`
	Landmarks       string `json:"landmarks,omitempty"`
	PublicTransport string `json:"public_transport,omitempty"`
}

type MenuSection struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuItem is a single catalog entry. Name is the canonical key for
// order lines; the index stores it lowercased.
type MenuItem struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type FAQ struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
}

type ReservationRules struct {
	MinPartySize                int  `json:"min_party_size"`
	MaxPartySize                int  `json:"max_party_size"`
	LargePartyThreshold         int  `json:"large_party_threshold"`
	RequiresPhoneForLargeParty  bool `json:"requires_phone_for_large_parties"`
	LeadTimeMinutes             int  `json:"lead_time_minutes"`
	AdvanceBookingDays          int  `json:"advance_booking_days"`
	MaxTablesPerSlot            int  `json:"max_tables_per_slot"`
}
