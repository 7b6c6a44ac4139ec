package signals

import (
	"encoding/json"
	"strings"
)

// Trigger is one client-side event named in an HX-Trigger style header.
//
// Detail, when set, becomes evt.detail on the client and forces the JSON
// form of the header.
type Trigger struct {
	Name   string
	Detail any
}

// FormatTriggers builds an HX-Trigger header value.
//
// Events are de-duplicated by name; the first occurrence wins and keeps its
// position. Without any detail the result is a comma-joined list
// ("a, b"). With detail it is a JSON object whose keys appear in the same
// order, detail-less events mapping to true. A detail that cannot be
// marshalled is sent as true.
func FormatTriggers(triggers []Trigger) string {
	triggers = dedupe(triggers)
	if len(triggers) == 0 {
		return ""
	}

	withDetail := false
	for _, t := range triggers {
		if t.Detail != nil {
			withDetail = true
			break
		}
	}

	if !withDetail {
		names := make([]string, len(triggers))
		for i, t := range triggers {
			names[i] = t.Name
		}
		return strings.Join(names, ", ")
	}

	var sb strings.Builder
	sb.WriteByte('{')
	for i, t := range triggers {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeMember(&sb, t)
	}
	sb.WriteByte('}')
	return sb.String()
}

// MergeTrigger appends extra events to an existing header value.
//
// Events already in existing keep their place and value; new ones follow in
// the order given. Either header form is accepted. The result is JSON when
// either side needs it.
func MergeTrigger(existing string, extra ...Trigger) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return FormatTriggers(extra)
	}

	present := make(map[string]bool)
	for _, name := range ParseTriggers(existing) {
		present[name] = true
	}

	var fresh []Trigger
	for _, t := range dedupe(extra) {
		if !present[t.Name] {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		return existing
	}

	if strings.HasPrefix(existing, "{") {
		body := strings.TrimSpace(strings.TrimSuffix(existing, "}"))
		var sb strings.Builder
		sb.WriteString(body)
		needComma := body != "{"
		for _, t := range fresh {
			if needComma {
				sb.WriteByte(',')
			}
			writeMember(&sb, t)
			needComma = true
		}
		sb.WriteByte('}')
		return sb.String()
	}

	names := ParseTriggers(existing)
	merged := make([]Trigger, 0, len(names)+len(fresh))
	for _, name := range names {
		merged = append(merged, Trigger{Name: name})
	}
	return FormatTriggers(append(merged, fresh...))
}

// ParseTriggers returns the event names in an HX-Trigger style value.
//
// For the JSON form only top-level keys are returned.
func ParseTriggers(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.HasPrefix(value, "{") {
		var events []string
		depth := 0
		inString := false
		stringStart := -1

		for i := 0; i < len(value); i++ {
			c := value[i]

			if inString && c == '\\' && i+1 < len(value) {
				i++
				continue
			}

			if c == '"' {
				if !inString {
					inString = true
					stringStart = i + 1
					continue
				}
				inString = false
				if depth == 1 {
					j := i + 1
					for j < len(value) && (value[j] == ' ' || value[j] == '\t') {
						j++
					}
					if j < len(value) && value[j] == ':' {
						var name string
						if err := json.Unmarshal([]byte(value[stringStart-1:i+1]), &name); err != nil {
							name = value[stringStart:i]
						}
						events = append(events, name)
					}
				}
				stringStart = -1
			} else if !inString {
				switch c {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
		return events
	}

	parts := strings.Split(value, ",")
	events := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			events = append(events, p)
		}
	}
	return events
}

func dedupe(triggers []Trigger) []Trigger {
	seen := make(map[string]bool, len(triggers))
	out := make([]Trigger, 0, len(triggers))
	for _, t := range triggers {
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}

func writeMember(sb *strings.Builder, t Trigger) {
	key, _ := json.Marshal(t.Name)
	sb.Write(key)
	sb.WriteByte(':')
	if t.Detail == nil {
		sb.WriteString("true")
		return
	}
	data, err := json.Marshal(t.Detail)
	if err != nil {
		sb.WriteString("true")
		return
	}
	sb.Write(data)
}
