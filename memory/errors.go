package memory

import (
	"fmt"
	"github.com/pkg/errors"
)

// ContractViolation describes a broken precondition of the heap layer, such as a null reference in a set key
// position or a region of the wrong kind. It indicates a bug in the caller and is raised as a panic, aborting the
// operation which detected it.
type ContractViolation struct {
	err error
}

// Error returns the message of the violation.
func (v *ContractViolation) Error() string {
	return fmt.Sprintf("contract violation: %v", v.err)
}

// Unwrap returns the underlying error, which carries the stack of the violation.
func (v *ContractViolation) Unwrap() error {
	return v.err
}

// Violatef raises a ContractViolation with the formatted message.
func Violatef(format string, args ...any) {
	panic(&ContractViolation{err: errors.Errorf(format, args...)})
}

// RecoverContractViolation converts a ContractViolation panic into an error stored in errp. Any other panic is
// propagated. It must be deferred directly:
//
//	defer memory.RecoverContractViolation(&err)
func RecoverContractViolation(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if violation, ok := r.(*ContractViolation); ok {
		*errp = violation
		return
	}
	panic(r)
}
