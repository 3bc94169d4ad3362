package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
)

// The portal renders a page's activities as a JSON island:
//
//	<script type="application/json" id="labspace-activities">[{"id":42,"title":"Loops"}]</script>
var dataIsland = regexp.MustCompile(`(?is)<script[^>]*id=["']labspace-activities["'][^>]*>(.*?)</script>`)

type pageEntry struct {
	ID        json.RawMessage `json:"id"`
	Title     string          `json:"title"`
	Name      string          `json:"name"`
	TargetURL string          `json:"target_url"`
	URL       string          `json:"url"`
}

type pageDocument struct {
	Activities []pageEntry `json:"activities"`
}

// ParsePageData extracts activity descriptors from a rendered page. It accepts
// an HTML page carrying the data island, a bare JSON array, or a JSON object
// with an "activities" array.
func ParsePageData(body []byte) ([]Descriptor, error) {
	payload := bytes.TrimSpace(body)
	if m := dataIsland.FindSubmatch(payload); m != nil {
		payload = bytes.TrimSpace([]byte(html.UnescapeString(string(m[1]))))
	}
	if len(payload) == 0 {
		return nil, ErrNoPageData
	}

	var entries []pageEntry
	switch payload[0] {
	case '[':
		if err := json.Unmarshal(payload, &entries); err != nil {
			return nil, fmt.Errorf("decoding activity list: %w", err)
		}
	case '{':
		var doc pageDocument
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("decoding activity document: %w", err)
		}
		entries = doc.Activities
	default:
		return nil, ErrNoPageData
	}

	descriptors := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		id := rawID(e.ID)
		if id == "" {
			continue
		}
		title := e.Title
		if title == "" {
			title = e.Name
		}
		target := e.TargetURL
		if target == "" {
			target = e.URL
		}
		descriptors = append(descriptors, NewDescriptor(id, title, target))
	}
	return descriptors, nil
}

// rawID accepts both numeric and string ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
