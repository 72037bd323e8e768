package directory

// SpecialtySet is the set of NUCC taxonomy codes the directory accepts
// in queries. Codes outside the set are a validation failure, not an
// empty result.
type SpecialtySet map[string]struct{}

// NewSpecialtySet builds a set from the given codes.
func NewSpecialtySet(codes ...string) SpecialtySet {
	set := make(SpecialtySet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// Contains reports whether code is a known specialty.
func (s SpecialtySet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Add registers a code in the set.
func (s SpecialtySet) Add(code string) {
	s[code] = struct{}{}
}

// DefaultSpecialties returns the surgical taxonomy codes served by the
// directory.
func DefaultSpecialties() SpecialtySet {
	return NewSpecialtySet(
		"208600000X", // Surgery
		"208C00000X", // Colon & Rectal Surgery
		"208G00000X", // Thoracic Surgery
		"207X00000X", // Orthopaedic Surgery
		"207T00000X", // Neurological Surgery
		"207Y00000X", // Otolaryngology
		"207W00000X", // Ophthalmology
		"208800000X", // Urology
		"2086S0122X", // Plastic and Reconstructive Surgery
		"204F00000X", // Transplant Surgery
	)
}
