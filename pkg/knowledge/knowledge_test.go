package knowledge

import "testing"

func TestDetectBrand(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"necesito un diferencial schneider", "schneider"},
		{"cable 2.5mm Schneider", "schneider"},
		{"un automatico de ABB por favor", "abb"},
		{"lampara de techo", ""},
		{"legrand o siemens, el que haya", "legrand"},
	}

	for _, tt := range tests {
		if got := DetectBrand(tt.text); got != tt.want {
			t.Errorf("DetectBrand(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectProductType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"necesito un diferencial", TypeDifferential},
		{"un interruptor diferencial de 40A", TypeDifferential},
		{"busco un magnetotérmico", TypeBreaker},
		{"una pia de 16A", TypeBreaker},
		{"cable 2.5mm schneider", TypeCable},
		{"manguera de 3 hilos", TypeCable},
		{"una lámpara para el baño", TypeLamp},
		{"quiero pagar mi factura", ""},
	}

	for _, tt := range tests {
		if got := DetectProductType(tt.text); got != tt.want {
			t.Errorf("DetectProductType(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractSpecs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]string
	}{
		{
			name: "current and sensitivity do not collide",
			text: "diferencial 40A 30mA",
			want: map[string]string{SpecCurrent: "40A", SpecSensitivity: "30mA"},
		},
		{
			name: "cable section with decimal comma",
			text: "cable de 2,5mm",
			want: map[string]string{SpecSection: "2.5mm"},
		},
		{
			name: "section is not read as current",
			text: "cable 2.5mm2",
			want: map[string]string{SpecSection: "2.5mm"},
		},
		{
			name: "poles and curve",
			text: "automatico 2P curva C 230v",
			want: map[string]string{SpecPoles: "2P", SpecCurve: "C", SpecVoltage: "230V"},
		},
		{
			name: "ip rating and power",
			text: "lampara 60w ip65",
			want: map[string]string{SpecPower: "60W", SpecIP: "IP65"},
		},
		{
			name: "spelled out units",
			text: "necesito 16 amperios y 230 voltios",
			want: map[string]string{SpecCurrent: "16A", SpecVoltage: "230V"},
		},
		{
			name: "no specs",
			text: "necesito ayuda con mi pedido",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSpecs(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractSpecs(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("ExtractSpecs(%q)[%s] = %q, want %q", tt.text, k, got[k], v)
				}
			}
		})
	}
}

func TestSynonyms(t *testing.T) {
	if syns := Synonyms("diferencial"); len(syns) == 0 {
		t.Fatal("expected synonyms for diferencial")
	}

	// Synonym lookup resolves back to the canonical entry.
	if syns := Synonyms("pia"); len(syns) == 0 {
		t.Fatal("expected synonyms when looking up by synonym")
	}

	if syns := Synonyms("hipoteca"); syns != nil {
		t.Fatalf("expected nil for unknown term, got %v", syns)
	}

	// Returned slice is a copy.
	syns := Synonyms("cable")
	syns[0] = "mutated"
	if again := Synonyms("cable"); again[0] == "mutated" {
		t.Error("Synonyms must return a copy of the table entry")
	}
}
