package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleReport() *Report {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	r := New("1.0", []ProviderEntry{
		{Name: "Std", Version: "1.0", Position: 0},
		{Name: "Lite", Version: "1.0", Position: 1},
	}, start)
	r.Add(CaseResult{Name: "random-available", Passed: true, Provider: "Std", DurationMS: 1})
	r.Add(CaseResult{
		Name:       "sealed-object-wrong-key",
		Passed:     false,
		Message:    "wrong key opened the envelope",
		Kind:       "integrity",
		Error:      "sealed object integrity check failed",
		Origin:     "cases.go:42",
		DurationMS: 3,
	})
	r.Finish(start.Add(250 * time.Millisecond))
	return r
}

// =============================================================================
// Report Tests
// =============================================================================

func TestU_Report_Summary(t *testing.T) {
	r := sampleReport()
	if r.Summary != (Summary{Total: 2, Passed: 1, Failed: 1}) {
		t.Errorf("Summary = %+v", r.Summary)
	}
	if r.OK() {
		t.Error("OK() should be false with a failure")
	}
	if len(r.Failures()) != 1 || r.Failures()[0].Name != "sealed-object-wrong-key" {
		t.Errorf("Failures() = %+v", r.Failures())
	}
	if r.Elapsed() != 250*time.Millisecond {
		t.Errorf("Elapsed() = %s", r.Elapsed())
	}
}

func TestU_ParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"cbor", FormatCBOR, false},
		{"text", FormatText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run("[Unit] ParseFormat: "+tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestU_Encode_Decode(t *testing.T) {
	r := sampleReport()
	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		t.Run("[Unit] Encode: "+string(f), func(t *testing.T) {
			data, err := Encode(r, f)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := Decode(data, f)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got.Summary != r.Summary || len(got.Results) != 2 || got.Results[1].Origin != "cases.go:42" {
				t.Errorf("decoded report differs: %+v", got)
			}
			if !got.StartedAt.Equal(r.StartedAt) {
				t.Errorf("StartedAt = %s, want %s", got.StartedAt, r.StartedAt)
			}
		})
	}
}

func TestU_Encode_Text(t *testing.T) {
	data, err := Encode(sampleReport(), FormatText)
	if err != nil {
		t.Fatalf("Encode(text) error = %v", err)
	}
	out := string(data)
	for _, want := range []string{"Providers: 0:Std 1:Lite", "PASS", "FAIL", "[integrity]", "1 passed, 1 failed, 2 total"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
	if _, err := Decode(data, FormatText); err == nil {
		t.Error("Decode(text) should fail")
	}
	if _, err := Encode(sampleReport(), "xml"); err == nil {
		t.Error("Encode(xml) should fail")
	}
}

func TestU_Encode_CBORDeterministic(t *testing.T) {
	r := sampleReport()
	a, _ := Encode(r, FormatCBOR)
	b, _ := Encode(r, FormatCBOR)
	if !bytes.Equal(a, b) {
		t.Error("CBOR encoding should be deterministic")
	}
}

// =============================================================================
// Signature Tests
// =============================================================================

func TestU_SignVerify(t *testing.T) {
	key, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey() error = %v", err)
	}
	payload, _ := Encode(sampleReport(), FormatCBOR)

	signed, err := Sign(payload, key)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	got, err := Verify(signed, &key.PublicKey)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.Summary.Total != 2 {
		t.Errorf("verified report summary = %+v", got.Summary)
	}

	other, _ := GenerateSigningKey()
	if _, err := Verify(signed, &other.PublicKey); err == nil {
		t.Error("Verify() with another key should fail")
	}

	tampered := append([]byte(nil), signed...)
	tampered[len(tampered)-70] ^= 0xff
	if _, err := Verify(tampered, &key.PublicKey); err == nil {
		t.Error("Verify() of a tampered message should fail")
	}
	if _, err := Sign(payload, nil); err == nil {
		t.Error("Sign(nil key) should fail")
	}
}

func TestU_KeyPEMFiles(t *testing.T) {
	dir := t.TempDir()
	key, _ := GenerateSigningKey()

	privPEM, err := EncodePrivateKeyPEM(key)
	if err != nil {
		t.Fatalf("EncodePrivateKeyPEM() error = %v", err)
	}
	pubPEM, err := EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKeyPEM() error = %v", err)
	}
	privPath := filepath.Join(dir, "sign.key")
	pubPath := filepath.Join(dir, "sign.pub")
	_ = os.WriteFile(privPath, privPEM, 0600)
	_ = os.WriteFile(pubPath, pubPEM, 0644)

	loaded, err := LoadSigningKey(privPath)
	if err != nil || !loaded.Equal(key) {
		t.Fatalf("LoadSigningKey() = %v", err)
	}
	pub, err := LoadVerifyingKey(pubPath)
	if err != nil || !pub.Equal(&key.PublicKey) {
		t.Fatalf("LoadVerifyingKey() = %v", err)
	}

	if _, err := LoadVerifyingKey(privPath); err == nil {
		t.Error("LoadVerifyingKey(private key) should fail")
	}
	if _, err := LoadSigningKey(filepath.Join(dir, "missing")); err == nil {
		t.Error("LoadSigningKey(missing) should fail")
	}
}
