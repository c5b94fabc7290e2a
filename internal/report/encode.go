package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format is a report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
	FormatText Format = "text"
)

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCBOR, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: json, yaml, cbor, text)", s)
	}
}

var cborEnc cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	cborEnc, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: CBOR encoder: %v", err))
	}
}

// Encode renders r in the given format.
func Encode(r *Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return data, nil
	case FormatCBOR:
		data, err := cborEnc.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode CBOR report: %w", err)
		}
		return data, nil
	case FormatText:
		return encodeText(r), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Decode parses a report encoded as JSON, YAML or CBOR.
func Decode(data []byte, format Format) (*Report, error) {
	var r Report
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &r)
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("cannot decode %q reports", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s report: %w", format, err)
	}
	return &r, nil
}

func encodeText(r *Report) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s\n", r.Tool, r.Version)
	fmt.Fprintf(&buf, "Started:   %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&buf, "Elapsed:   %s\n", r.Elapsed())

	names := make([]string, len(r.Providers))
	for i, p := range r.Providers {
		names[i] = fmt.Sprintf("%d:%s", p.Position, p.Name)
	}
	fmt.Fprintf(&buf, "Providers: %s\n\n", strings.Join(names, " "))

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CASE\tRESULT\tPROVIDER\tTIME\tDETAIL")
	for _, res := range r.Results {
		status := "PASS"
		detail := res.Message
		if !res.Passed {
			status = "FAIL"
			detail = strings.TrimSpace(fmt.Sprintf("[%s] %s %s", res.Kind, res.Message, res.Origin))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n", res.Name, status, res.Provider, res.DurationMS, detail)
	}
	_ = w.Flush()

	fmt.Fprintf(&buf, "\n%d passed, %d failed, %d total\n", r.Summary.Passed, r.Summary.Failed, r.Summary.Total)
	return buf.Bytes()
}
