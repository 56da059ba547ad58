package referral

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/blang/semver"
)

// DefaultVersion is the API version used when none is configured.
const DefaultVersion = "v60.0"

const dataPrefix = "/services/data"

// Resource identifies an API endpoint. The concrete types are
// EnrollmentResource and EventResource.
type Resource interface {
	resource()
}

// EnrollmentResource is the member enrollment endpoint of a promotion.
type EnrollmentResource struct {
	Program       string
	PromotionCode string
	Version       string
}

// EventResource is the referral event endpoint.
type EventResource struct {
	Version string
}

func (EnrollmentResource) resource() {}
func (EventResource) resource()      {}

// Path returns the absolute path of r below the instance URL.
func Path(r Resource) (string, error) {
	switch r := r.(type) {
	case EnrollmentResource:
		if strings.TrimSpace(r.Program) == "" {
			return "", required("program name")
		}
		if strings.TrimSpace(r.PromotionCode) == "" {
			return "", required("promotion code")
		}
		return versioned(r.Version,
			"referral-programs", url.PathEscape(r.Program),
			"promotions", url.PathEscape(r.PromotionCode),
			"member-enrollments")
	case EventResource:
		return versioned(r.Version, "referral-program", "referral-event")
	case nil:
		return "", required("resource")
	default:
		return "", fmt.Errorf("%w: unsupported resource %T", ErrInvalidInput, r)
	}
}

func versioned(version string, segments ...string) (string, error) {
	v, err := NormalizeVersion(version)
	if err != nil {
		return "", err
	}
	return dataPrefix + "/" + v + "/" + strings.Join(segments, "/"), nil
}

// NormalizeVersion turns "60", "60.0", "v60.0" or "v60.0.0" into "v60.0".
// An empty version yields DefaultVersion.
func NormalizeVersion(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return DefaultVersion, nil
	}
	sv, err := semver.ParseTolerant(version)
	if err != nil {
		return "", fmt.Errorf("%w: API version %q: %v", ErrInvalidInput, version, err)
	}
	if sv.Patch != 0 || len(sv.Pre) > 0 {
		return "", invalid("API version", version)
	}
	return fmt.Sprintf("v%d.%d", sv.Major, sv.Minor), nil
}
