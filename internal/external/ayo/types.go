package ayo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleString accepts a JSON string or number. AYO ids arrive as either.
type FlexibleString string

func (fs *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*fs = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*fs = FlexibleString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id value: %s", string(data))
	}
	*fs = FlexibleString(n.String())
	return nil
}

func (fs FlexibleString) String() string {
	return string(fs)
}

// FlexibleInt accepts 1, "1", true and their zero counterparts.
type FlexibleInt int

func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	str := strings.Trim(strings.TrimSpace(string(data)), `"`)

	switch strings.ToLower(str) {
	case "true":
		*fi = 1
		return nil
	case "false", "", "null":
		*fi = 0
		return nil
	}

	n, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("invalid integer value: %s", str)
	}
	*fi = FlexibleInt(n)
	return nil
}

// FlexibleFloat accepts a JSON number or a numeric string.
type FlexibleFloat float64

func (ff *FlexibleFloat) UnmarshalJSON(data []byte) error {
	str := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid number value: %s", str)
	}
	*ff = FlexibleFloat(f)
	return nil
}

// Field is a bookable court as AYO describes it.
type Field struct {
	ID        FlexibleString `json:"id"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	IsActive  FlexibleInt    `json:"is_active"`
	SportName string         `json:"sport_name"`
}

// Active reports whether AYO lists the field as bookable.
func (f Field) Active() bool {
	return f.Status == "ACTIVE" && f.IsActive == 1
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Booking is a reservation as AYO returns it from list-bookings.
type Booking struct {
	ID          FlexibleString `json:"id"`
	FieldID     FlexibleString `json:"field_id"`
	BookingDate string         `json:"booking_date"`
	StartTime   string         `json:"start_time"`
	EndTime     string         `json:"end_time"`
	Status      string         `json:"status"`
	TotalPrice  *FlexibleFloat `json:"total_price"`
	Customer    Customer       `json:"customer"`
	Notes       string         `json:"notes"`
}

// Price returns the vendor price, if one was sent.
func (b Booking) Price() (float64, bool) {
	if b.TotalPrice == nil {
		return 0, false
	}
	return float64(*b.TotalPrice), true
}

// Result is the uniform outcome of a vendor call. A failed call never
// surfaces as a Go error; Success is false and Error carries the diagnostic.
type Result struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`

	cause error
}

type FieldsResult struct {
	*Result
	Fields  []Field `json:"-"`
	Invalid []error `json:"-"`
}

type BookingsResult struct {
	*Result
	Bookings []Booking `json:"-"`
	Invalid  []error   `json:"-"`
}
