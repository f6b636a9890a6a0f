package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/soaringjerry/awap/internal/models"
)

const csvContentType = "text/csv; charset=utf-8"

var (
	userCSVHeader  = []string{"ID", "Name", "Email", "Role", "Department", "Status", "Last Login", "Created At"}
	auditCSVHeader = []string{"ID", "Timestamp", "Admin User", "Action Type", "Target Type", "Target ID", "Details", "Status"}
)

// ExportUsersCSV renders one row per user. Password hashes are never written.
func ExportUsersCSV(users []models.User) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(userCSVHeader); err != nil {
		return nil, err
	}
	for _, u := range users {
		lastLogin := "Never"
		if u.LastLogin != nil {
			lastLogin = formatTime(*u.LastLogin)
		}
		rec := []string{
			strconv.FormatInt(u.ID, 10),
			safeCell(u.Name),
			safeCell(u.Email),
			u.Role,
			safeCell(u.Department),
			u.Status,
			lastLogin,
			formatTime(u.CreatedAt),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportAuditCSV renders audit entries in the order given.
func ExportAuditCSV(entries []models.AuditEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(auditCSVHeader); err != nil {
		return nil, err
	}
	for _, e := range entries {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			formatTime(e.CreatedAt),
			safeCell(adminName(e)),
			e.ActionType,
			e.TargetType,
			safeCell(e.TargetID),
			safeCell(e.Details),
			e.Status,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func adminName(e models.AuditEntry) string {
	if e.AdminName != "" {
		return e.AdminName
	}
	return "System"
}

// safeCell quotes text a spreadsheet would otherwise evaluate as a formula.
func safeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func exportFilename(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%d.csv", prefix, at.UnixMilli())
}

func itoa(i int) string { return strconv.Itoa(i) }
