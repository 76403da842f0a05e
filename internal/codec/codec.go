// Package codec is the one place where a task's audit log and custom-date
// list are converted to and from their stored JSON form.
//
// Decoders never fail hard: malformed input yields an empty value together
// with a non-nil error that callers log and then ignore.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ramiqadoumi/go-control-tracker/internal/domain"
)

const dateLayout = "2006-01-02"

// EncodeResponses serializes the audit log. A nil log encodes as [].
func EncodeResponses(rs []domain.IntermediateResponse) ([]byte, error) {
	if rs == nil {
		rs = []domain.IntermediateResponse{}
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("encode responses: %w", err)
	}
	return data, nil
}

// DecodeResponses parses a stored audit log.
func DecodeResponses(raw []byte) ([]domain.IntermediateResponse, error) {
	if isBlank(raw) {
		return nil, nil
	}
	var rs []domain.IntermediateResponse
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	return rs, nil
}

// EncodeDates serializes a custom-date list as ISO calendar dates.
func EncodeDates(dates []time.Time) ([]byte, error) {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(dateLayout))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode dates: %w", err)
	}
	return data, nil
}

// DecodeDates parses a stored custom-date list into dates at midnight in loc.
// Both plain dates and RFC 3339 timestamps are accepted; any unparsable
// element discards the whole list.
func DecodeDates(raw []byte, loc *time.Location) ([]time.Time, error) {
	if isBlank(raw) {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode dates: %w", err)
	}
	dates := make([]time.Time, 0, len(items))
	for _, s := range items {
		d, err := parseDate(strings.TrimSpace(s), loc)
		if err != nil {
			return nil, fmt.Errorf("decode dates: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable date %q", s)
	}
	return domain.StartOfDay(ts.In(loc)), nil
}

func isBlank(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
