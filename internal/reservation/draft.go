package reservation

import (
	"fmt"
	"strings"
)

// DefaultPartySize is the party size of a fresh draft.
const DefaultPartySize = 2

// SelectedDish is one pre-order line, identified by (Category, Name).
type SelectedDish struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	UnitPrice int    `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity in DH.
func (d SelectedDish) Subtotal() int {
	return d.UnitPrice * d.Quantity
}

// DishID builds the selection key for a dish.
func DishID(category, name string) string {
	return category + "_" + name
}

// Draft is the in-progress booking form state. It is never persisted.
type Draft struct {
	Name           string         `json:"name"`
	CountryCode    string         `json:"country_code"`
	Phone          string         `json:"phone"`
	Email          string         `json:"email"`
	Date           Date           `json:"date"`
	Time           string         `json:"time"`
	PartySize      int            `json:"party_size"`
	SpecialRequest string         `json:"special_request"`
	Preorder       bool           `json:"preorder"`
	Dishes         []SelectedDish `json:"dishes"`
}

// NewDraft returns an empty draft with the given preselected country.
func NewDraft(countryCode string) *Draft {
	return &Draft{CountryCode: CanonicalCountryCode(countryCode), PartySize: DefaultPartySize}
}

// SetDate changes the date. A different date clears the time slot, since the slot
// may not exist on the new day. It reports whether the date changed.
func (d *Draft) SetDate(date Date) bool {
	if d.Date == date {
		return false
	}
	d.Date = date
	d.Time = ""
	return true
}

// SetTime selects a slot. A slot cannot be chosen before a date.
func (d *Draft) SetTime(slot string) error {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		d.Time = ""
		return nil
	}
	if d.Date.IsZero() {
		return ErrNoDate
	}
	normalized, err := NormalizeTime(slot)
	if err != nil {
		return err
	}
	d.Time = normalized
	return nil
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	cp := *d
	cp.Dishes = append([]SelectedDish(nil), d.Dishes...)
	return &cp
}

// ToggleDish adds the dish with quantity 1, or removes it when already selected.
// It reports whether the dish is selected afterwards.
func (d *Draft) ToggleDish(category, name string, unitPrice int) bool {
	id := DishID(category, name)
	for i, dish := range d.Dishes {
		if dish.ID == id {
			d.Dishes = append(d.Dishes[:i], d.Dishes[i+1:]...)
			return false
		}
	}
	d.Dishes = append(d.Dishes, SelectedDish{
		ID:        id,
		Category:  category,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  1,
	})
	return true
}

// SetDishQuantity updates a selected dish. Quantity 0 or less removes the line.
// It reports whether the dish was found.
func (d *Draft) SetDishQuantity(category, name string, qty int) bool {
	id := DishID(category, name)
	for i := range d.Dishes {
		if d.Dishes[i].ID != id {
			continue
		}
		if qty <= 0 {
			d.Dishes = append(d.Dishes[:i], d.Dishes[i+1:]...)
		} else {
			d.Dishes[i].Quantity = qty
		}
		return true
	}
	return false
}

// DishTotal is the running pre-order total in DH. Display only.
func (d *Draft) DishTotal() int {
	total := 0
	for _, dish := range d.Dishes {
		total += dish.Subtotal()
	}
	return total
}

// Itemization renders the pre-order as text appended to the special request.
// It is empty when pre-order is off or nothing is selected.
func (d *Draft) Itemization() string {
	if !d.Preorder || len(d.Dishes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Pré-commande :\n")
	for _, dish := range d.Dishes {
		fmt.Fprintf(&b, "- %s x%d (%d DH)\n", dish.Name, dish.Quantity, dish.Subtotal())
	}
	fmt.Fprintf(&b, "Total : %d DH", d.DishTotal())
	return b.String()
}

// InternationalPhone joins the country code and the stripped local digits.
func (d *Draft) InternationalPhone() string {
	digits := StripPhone(d.Phone)
	if digits == "" {
		return ""
	}
	return CanonicalCountryCode(d.CountryCode) + digits
}
