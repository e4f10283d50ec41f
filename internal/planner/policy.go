package planner

import "fmt"

// Policy selects the action when a push target's identity (visible name plus
// parent chain) already exists on the device.
type Policy int

const (
	// PolicySkip leaves the existing document untouched.
	PolicySkip Policy = iota

	// PolicyNew uploads a co-existing duplicate under a fresh identifier.
	PolicyNew

	// PolicyReplace supersedes the existing document's metadata and every
	// payload, keeping its identifier.
	PolicyReplace

	// PolicyReplaceContentOnly substitutes only the primary rendered
	// payload, preserving annotations tied to the identifier.
	PolicyReplaceContentOnly
)

// policy names as accepted on the command line.
const (
	policyNameSkip               = "skip"
	policyNameNew                = "new"
	policyNameReplace            = "replace"
	policyNameReplaceContentOnly = "replace-content-only"
)

// ParsePolicy parses a policy name from the command line.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case policyNameSkip:
		return PolicySkip, nil
	case policyNameNew:
		return PolicyNew, nil
	case policyNameReplace:
		return PolicyReplace, nil
	case policyNameReplaceContentOnly:
		return PolicyReplaceContentOnly, nil
	}
	return PolicySkip, fmt.Errorf("unknown conflict policy %q (want %s, %s, %s or %s)",
		s, policyNameSkip, policyNameNew, policyNameReplace, policyNameReplaceContentOnly)
}

// String returns the command-line name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyNew:
		return policyNameNew
	case PolicyReplace:
		return policyNameReplace
	case PolicyReplaceContentOnly:
		return policyNameReplaceContentOnly
	default:
		return policyNameSkip
	}
}

// actionForConflict dispatches the policy for one same-identity conflict.
// existingID is the identifier of the document already at the target.
func actionForConflict(p Policy, existingID string) (actionType, id string, fresh bool) {
	switch p {
	case PolicyNew:
		return ActionCreateDocument, "", true
	case PolicyReplace:
		return ActionReplaceDocument, existingID, false
	case PolicyReplaceContentOnly:
		return ActionReplaceContentOnly, existingID, false
	default:
		return ActionSkipExisting, existingID, false
	}
}
