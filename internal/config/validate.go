package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted JSON path such as
// "metrics.pushgateway_url".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	vOnce sync.Once
	v     *validator.Validate
)

func structValidator() *validator.Validate {
	vOnce.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// report JSON names, not Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
	})
	return v
}

// ValidateRun checks r and returns every issue found. Field-level rules come
// from the struct tags; cross-field rules are checked here.
func ValidateRun(r Run) []Issue {
	var issues []Issue

	if err := structValidator().Struct(r); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return []Issue{{Severity: SeverityError, Path: "", Message: err.Error()}}
		}
		for _, fe := range ves {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     jsonPath(fe.Namespace()),
				Message:  fieldMessage(fe),
			})
		}
	}

	switch r.Source.Kind {
	case "file":
		if strings.TrimSpace(r.Source.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.path", "file source requires a non-empty path"})
		}
		if r.Source.URL != "" {
			issues = append(issues, Issue{SeverityWarning, "source.url", "url is ignored for a file source"})
		}
	case "http":
		if strings.TrimSpace(r.Source.URL) == "" {
			issues = append(issues, Issue{SeverityError, "source.url", "http source requires a url"})
		}
	}

	switch r.Metrics.Backend {
	case "pushgateway":
		if r.Metrics.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "pushgateway backend requires pushgateway_url"})
		}
	case "datadog":
		if r.Metrics.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"})
		}
	}

	rt := r.Runtime
	if rt.QueueDepth > 0 && rt.Workers > 0 && rt.QueueDepth < rt.Workers {
		issues = append(issues, Issue{
			SeverityWarning, "runtime.queue_depth",
			fmt.Sprintf("queue_depth=%d is below workers=%d; some workers will idle", rt.QueueDepth, rt.Workers),
		})
	}
	if rt.InternSize == 0 {
		issues = append(issues, Issue{SeverityWarning, "runtime.intern_size", "interning disabled; repeated town and street names are stored per record"})
	}

	return issues
}

// jsonPath drops the root type name from a validator namespace
// ("Run.source.url" → "source.url").
func jsonPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fmt.Sprint(fe.Value()))
	case "hostname_port":
		return fmt.Sprintf("%q is not host:port", fmt.Sprint(fe.Value()))
	case "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
