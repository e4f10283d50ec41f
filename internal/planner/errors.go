package planner

import "fmt"

// unsafeNameChars are characters a visible name may not contain: the path
// separator is structurally unrepresentable in the remote addressing scheme,
// and shell metacharacters cannot be passed safely through the
// remote-command transport.
const unsafeNameChars = "/\"'\\`$"

// InvalidNameError indicates a filename that cannot be represented or
// safely transferred. The item is rejected at planning time and never
// attempted.
type InvalidNameError struct {
	// Name is the offending filename.
	Name string

	// Reason explains what makes it invalid.
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

// validateName checks a visible name for structural and quoting safety.
func validateName(name string) error {
	if name == "" {
		return &InvalidNameError{Name: name, Reason: "empty name"}
	}
	for _, c := range name {
		for _, bad := range unsafeNameChars {
			if c == bad {
				return &InvalidNameError{Name: name, Reason: fmt.Sprintf("contains %q", string(bad))}
			}
		}
	}
	return nil
}
