package region

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// UnknownName is used for codes missing from the names table
const UnknownName = "Unknown"

// Names maps region codes to English names
type Names map[string]string

// SeoulDistricts returns the 25 autonomous districts of Seoul
func SeoulDistricts() Names {
	return Names{
		"11110": "Jongno-gu",
		"11140": "Jung-gu",
		"11170": "Yongsan-gu",
		"11200": "Seongdong-gu",
		"11215": "Gwangjin-gu",
		"11230": "Dongdaemun-gu",
		"11260": "Jungnang-gu",
		"11290": "Seongbuk-gu",
		"11305": "Gangbuk-gu",
		"11320": "Dobong-gu",
		"11350": "Nowon-gu",
		"11380": "Eunpyeong-gu",
		"11410": "Seodaemun-gu",
		"11440": "Mapo-gu",
		"11470": "Yangcheon-gu",
		"11500": "Gangseo-gu",
		"11530": "Guro-gu",
		"11545": "Geumcheon-gu",
		"11560": "Yeongdeungpo-gu",
		"11590": "Dongjak-gu",
		"11620": "Gwanak-gu",
		"11650": "Seocho-gu",
		"11680": "Gangnam-gu",
		"11710": "Songpa-gu",
		"11740": "Gangdong-gu",
	}
}

// Name returns the English name of a code, or UnknownName
func (n Names) Name(code string) string {
	if name, ok := n[code]; ok {
		return name
	}
	return UnknownName
}

// Merge returns a copy of n with every entry of override applied
func (n Names) Merge(override Names) Names {
	out := make(Names, len(n)+len(override))
	for k, v := range n {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// LoadNames reads a YAML mapping of code to name. Keys may be written as
// numbers or strings.
func LoadNames(r io.Reader) (Names, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Names{}, nil
		}
		return nil, fmt.Errorf("failed to parse names: %w", err)
	}
	if len(doc.Content) == 0 {
		return Names{}, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("names must be a mapping, got line %d", root.Line)
	}

	names := make(Names, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("names line %d: expected code: name", key.Line)
		}
		names[key.Value] = value.Value
	}
	return names, nil
}
