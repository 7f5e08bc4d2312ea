package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Chunk is one retrieval document derived from the catalog. Chunks are
// indexed into the knowledge store at startup and matched against the
// caller's question at answer time.
type Chunk struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Chunks flattens the business catalog into retrieval documents: one
// for the basic info, one for hours and location, one per menu section,
// one per FAQ entry, and one each for policies, reservation rules and
// special notes when present.
func Chunks(biz *Business) []Chunk {
	if biz == nil {
		return nil
	}
	var chunks []Chunk

	var basic strings.Builder
	fmt.Fprintf(&basic, "%s.", biz.BusinessName)
	if biz.Description != "" {
		basic.WriteString(" " + biz.Description)
	}
	if biz.Address.Phone != "" {
		fmt.Fprintf(&basic, " Phone: %s.", biz.Address.Phone)
	}
	chunks = append(chunks, Chunk{ID: "basic_info", Category: "basic_info", Text: basic.String()})

	var hours strings.Builder
	if len(biz.Hours) > 0 {
		hours.WriteString("Opening hours: ")
		for _, day := range dayOrder {
			if h, ok := biz.Hours[day]; ok {
				fmt.Fprintf(&hours, "%s %s. ", titleCase(day), h)
			}
		}
	}
	if biz.Address.Street != "" {
		fmt.Fprintf(&hours, "Address: %s, %s, %s %s.",
			biz.Address.Street, biz.Address.City, biz.Address.State, biz.Address.Zip)
	}
	if biz.LocationInfo.Landmarks != "" {
		fmt.Fprintf(&hours, " Landmarks: %s.", biz.LocationInfo.Landmarks)
	}
	if biz.LocationInfo.Parking != "" {
		fmt.Fprintf(&hours, " Parking: %s.", biz.LocationInfo.Parking)
	}
	if biz.LocationInfo.PublicTransport != "" {
		fmt.Fprintf(&hours, " Transit: %s.", biz.LocationInfo.PublicTransport)
	}
	if hours.Len() > 0 {
		chunks = append(chunks, Chunk{ID: "hours_location", Category: "hours_location", Text: strings.TrimSpace(hours.String())})
	}

	for i, section := range biz.MenuSections {
		var menu strings.Builder
		fmt.Fprintf(&menu, "Menu section %s: ", section.Name)
		for _, item := range section.Items {
			fmt.Fprintf(&menu, "%s ($%.2f)", item.Name, item.Price)
			if item.Description != "" {
				fmt.Fprintf(&menu, " - %s", item.Description)
			}
			menu.WriteString(". ")
		}
		chunks = append(chunks, Chunk{
			ID:       fmt.Sprintf("menu_%d", i),
			Category: "menu",
			Text:     strings.TrimSpace(menu.String()),
		})
	}

	for i, faq := range biz.FAQ {
		chunks = append(chunks, Chunk{
			ID:       fmt.Sprintf("faq_%d", i),
			Category: "faq",
			Text:     fmt.Sprintf("Q: %s A: %s", faq.Question, faq.Answer),
		})
	}

	if len(biz.Policies) > 0 {
		keys := make([]string, 0, len(biz.Policies))
		for k := range biz.Policies {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var policies strings.Builder
		policies.WriteString("Policies: ")
		for _, k := range keys {
			fmt.Fprintf(&policies, "%s: %s. ", strings.ReplaceAll(k, "_", " "), biz.Policies[k])
		}
		chunks = append(chunks, Chunk{ID: "policies", Category: "policies", Text: strings.TrimSpace(policies.String())})
	}

	if biz.ReservationRules != (ReservationRules{}) {
		r := biz.ReservationRules
		text := fmt.Sprintf(
			"Reservations: party size %d to %d. Parties of %d or more require a phone number. "+
				"Bookings need at least %d minutes lead time and can be made up to %d days in advance.",
			r.MinPartySize, r.MaxPartySize, r.LargePartyThreshold, r.LeadTimeMinutes, r.AdvanceBookingDays)
		chunks = append(chunks, Chunk{ID: "reservation_rules", Category: "reservation_rules", Text: text})
	}

	if len(biz.SpecialNotes) > 0 {
		chunks = append(chunks, Chunk{
			ID:       "special_notes",
			Category: "special_notes",
			Text:     "Notes: " + strings.Join(biz.SpecialNotes, " "),
		})
	}

	return chunks
}

var dayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
