package scenario

import (
	"encoding/json"
	"fortio.org/safecast"
	"github.com/crytic/symheap/config"
	"github.com/crytic/symheap/logging"
	"github.com/crytic/symheap/logging/colors"
	"github.com/fxamacker/cbor"
	"github.com/pkg/errors"
	"os"
)

// StepResult describes the outcome of one step of a scenario.
type StepResult struct {
	// Index is the position of the step in the scenario.
	Index uint32 `json:"index" cbor:"index"`

	// Op is the operation of the step.
	Op Op `json:"op" cbor:"op"`

	// Heap is the heap the step ran against.
	Heap string `json:"heap" cbor:"heap"`

	// Result is the rendering of the value read or the elements listed by the step, if any.
	Result string `json:"result,omitempty" cbor:"result,omitempty"`

	// Passed indicates whether every expectation of the step was met.
	Passed bool `json:"passed" cbor:"passed"`

	// Failure describes the expectation which was not met.
	Failure string `json:"failure,omitempty" cbor:"failure,omitempty"`

	// Violation is the message of the contract violation raised by the step.
	Violation string `json:"violation,omitempty" cbor:"violation,omitempty"`
}

func newStepResult(index int, step *Step) (StepResult, error) {
	i, err := safecast.Conv[uint32](index)
	if err != nil {
		return StepResult{}, errors.WithStack(err)
	}
	return StepResult{Index: i, Op: step.Op, Heap: step.heapName()}, nil
}

// Report describes the outcome of a scenario.
type Report struct {
	// Name is the name of the scenario.
	Name string `json:"name" cbor:"name"`

	// Version is the format version of the scenario.
	Version string `json:"version" cbor:"version"`

	// Steps are the results of the steps which ran.
	Steps []StepResult `json:"steps" cbor:"steps"`

	// Failures is the amount of steps whose expectations were not met.
	Failures int `json:"failures" cbor:"failures"`

	// Violations is the amount of contract violations raised, whether expected or not.
	Violations int `json:"violations" cbor:"violations"`

	// Heaps is the amount of heaps the scenario created, including forks.
	Heaps int `json:"heaps" cbor:"heaps"`
}

func (r *Report) add(result StepResult) {
	r.Steps = append(r.Steps, result)
	if !result.Passed {
		r.Failures++
	}
	if result.Violation != "" {
		r.Violations++
	}
}

// Failed indicates whether any step of the scenario failed.
func (r *Report) Failed() bool {
	return r.Failures > 0
}

// Summary returns a colorized description of the report, listing the failed steps.
func (r *Report) Summary() *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	if r.Failed() {
		buffer.Append(colors.RedBold, "[FAILED]", colors.Reset)
	} else {
		buffer.Append(colors.GreenBold, "[PASSED]", colors.Reset)
	}
	buffer.Append(" ", colors.Bold, r.Name, colors.Reset, ": ", len(r.Steps), " steps, ", r.Failures, " failures, ",
		r.Violations, " contract violations, ", r.Heaps, " heaps")

	for _, step := range r.Steps {
		if step.Passed {
			continue
		}
		buffer.Append("\n", colors.LEFT_ARROW, " step ", step.Index, " (", string(step.Op), " on ", step.Heap, "): ",
			colors.Red, step.Failure, colors.Reset)
		if step.Violation != "" {
			buffer.Append(colors.DarkGray, ": ", step.Violation, colors.Reset)
		}
	}
	return buffer
}

// EncodeReports encodes the reports in the given format.
func EncodeReports(reports []*Report, format config.ReportFormat) ([]byte, error) {
	switch format {
	case config.ReportJSON:
		b, err := json.MarshalIndent(reports, "", "\t")
		return b, errors.WithStack(err)
	case config.ReportCBOR:
		b, err := cbor.Marshal(reports, cbor.EncOptions{})
		return b, errors.WithStack(err)
	}
	return nil, errors.Errorf("unknown report format %q", format)
}

// DecodeReports decodes reports encoded by EncodeReports.
func DecodeReports(data []byte, format config.ReportFormat) ([]*Report, error) {
	var reports []*Report
	switch format {
	case config.ReportJSON:
		if err := json.Unmarshal(data, &reports); err != nil {
			return nil, errors.WithStack(err)
		}
	case config.ReportCBOR:
		if err := cbor.Unmarshal(data, &reports); err != nil {
			return nil, errors.WithStack(err)
		}
	default:
		return nil, errors.Errorf("unknown report format %q", format)
	}
	return reports, nil
}

// WriteReports encodes the reports in the given format and writes them to path.
func WriteReports(path string, reports []*Report, format config.ReportFormat) error {
	b, err := EncodeReports(reports, format)
	if err != nil {
		return err
	}
	if err = os.WriteFile(path, b, 0644); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
