package filecsv

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"ig-oauth-service/domain/model"
)

var licenseHeader = []string{
	"license_key", "domain", "is_active", "user_no", "user_name",
	"subscription_status", "subscription_period_end", "activated_at", "created_at",
}

// WriteLicenses streams the license listing as CSV for the admin export.
func WriteLicenses(w io.Writer, licenses []*model.LicenseListing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(licenseHeader); err != nil {
		return err
	}
	for _, l := range licenses {
		record := []string{
			l.LicenseKey,
			strDeref(l.Domain),
			strconv.FormatBool(l.IsActive),
			strDeref(l.UserNo),
			strDeref(l.UserName),
			strDeref(l.SubscriptionStatus),
			timeDeref(l.SubscriptionPeriodEnd),
			timeDeref(l.ActivatedAt),
			l.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeDeref(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
