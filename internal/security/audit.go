// Package security audits workspace filesystem permissions: config
// files and credential directories that are world-readable or
// world-writable are flagged before the control loop trusts them.
package security

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarn     Severity = "warn"
	SeverityInfo     Severity = "info"
)

// Finding is a single audit finding.
type Finding struct {
	CheckID     string   `json:"check_id"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Detail      string   `json:"detail"`
	Remediation string   `json:"remediation,omitempty"`
}

// Summary counts findings by severity.
type Summary struct {
	Critical int `json:"critical"`
	Warn     int `json:"warn"`
	Info     int `json:"info"`
}

// Report is the result of one audit run.
type Report struct {
	Timestamp int64     `json:"timestamp"`
	Summary   Summary   `json:"summary"`
	Findings  []Finding `json:"findings"`
}

func (r *Report) HasCritical() bool { return r.Summary.Critical > 0 }

// AuditOptions configures which checks Audit runs.
type AuditOptions struct {
	// StateDir is the workspace's .rustant/ state directory.
	StateDir string
	// ConfigPath is the config file to check for readable permissions.
	ConfigPath string
	// IncludeFilesystem enables permission checks under StateDir and
	// around ConfigPath.
	IncludeFilesystem bool
	// IncludeGateway is accepted for option-struct stability but is a
	// no-op: there is no network-facing gateway component in scope.
	IncludeGateway bool
}

// DefaultAuditOptions returns an options value with filesystem checks
// enabled and no paths set; callers fill in StateDir/ConfigPath.
func DefaultAuditOptions() AuditOptions {
	return AuditOptions{IncludeFilesystem: true}
}

// Auditor runs a configured set of security checks.
type Auditor struct {
	opts AuditOptions
}

func NewAuditor(opts AuditOptions) *Auditor {
	return &Auditor{opts: opts}
}

// Audit runs every check enabled in the Auditor's options and returns
// the combined report.
func (a *Auditor) Audit(ctx context.Context) (*Report, error) {
	report := &Report{Timestamp: time.Now().Unix(), Findings: []Finding{}}

	if a.opts.IncludeFilesystem {
		findings, err := auditFilesystem(a.opts)
		if err != nil {
			return nil, fmt.Errorf("filesystem audit: %w", err)
		}
		report.Findings = append(report.Findings, findings...)
	}

	report.Summary = countBySeverity(report.Findings)
	return report, nil
}

func countBySeverity(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarn:
			s.Warn++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

func auditFilesystem(opts AuditOptions) ([]Finding, error) {
	var findings []Finding

	if opts.ConfigPath != "" {
		f, err := checkConfigFile(opts.ConfigPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		findings = append(findings, f...)
	}

	if opts.StateDir != "" {
		credsDir := filepath.Join(opts.StateDir, "credentials")
		if info, err := os.Stat(credsDir); err == nil && info.IsDir() {
			findings = append(findings, checkDirectory(credsDir, "credentials_dir", info.Mode())...)
		}
	}

	return findings, nil
}

func checkConfigFile(path string) ([]Finding, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var findings []Finding
	mode := info.Mode().Perm()
	if isWorldReadable(mode) {
		findings = append(findings, Finding{
			CheckID:     "fs.config.perms_world_readable",
			Severity:    SeverityCritical,
			Title:       "Config file is world-readable",
			Detail:      fmt.Sprintf("%s has mode %o, which is readable by any local user", path, mode),
			Remediation: fmt.Sprintf("chmod %o %s", SecureFileMode, path),
		})
	}
	if isWorldWritable(mode) {
		findings = append(findings, Finding{
			CheckID:     "fs.config.perms_world_writable",
			Severity:    SeverityCritical,
			Title:       "Config file is world-writable",
			Detail:      fmt.Sprintf("%s has mode %o, which is writable by any local user", path, mode),
			Remediation: fmt.Sprintf("chmod %o %s", SecureFileMode, path),
		})
	}
	return findings, nil
}

func checkDirectory(path, checkPrefix string, mode fs.FileMode) []Finding {
	var findings []Finding
	perm := mode.Perm()
	if isWorldWritable(perm) {
		findings = append(findings, Finding{
			CheckID:     fmt.Sprintf("fs.%s.perms_world_writable", checkPrefix),
			Severity:    SeverityCritical,
			Title:       fmt.Sprintf("%s is world-writable", titleCase(checkPrefix)),
			Detail:      fmt.Sprintf("%s has mode %o, which is writable by any local user", path, perm),
			Remediation: fmt.Sprintf("chmod %o %s", SecureDirMode, path),
		})
	}
	if isWorldReadable(perm) {
		findings = append(findings, Finding{
			CheckID:  fmt.Sprintf("fs.%s.perms_world_readable", checkPrefix),
			Severity: SeverityWarn,
			Title:    fmt.Sprintf("%s is world-readable", titleCase(checkPrefix)),
			Detail:   fmt.Sprintf("%s has mode %o, which is readable by any local user", path, perm),
		})
	}
	return findings
}

const (
	worldReadable = 0004
	worldWritable = 0002
)

func isWorldReadable(mode fs.FileMode) bool { return mode&worldReadable != 0 }
func isWorldWritable(mode fs.FileMode) bool { return mode&worldWritable != 0 }

// SecureFileMode is the recommended permission mode for sensitive files.
const SecureFileMode fs.FileMode = 0600

// SecureDirMode is the recommended permission mode for sensitive directories.
const SecureDirMode fs.FileMode = 0700

// FormatReport renders a Report as a human-readable summary.
func FormatReport(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Security Audit Report\n")
	fmt.Fprintf(&b, "Critical: %d\n", r.Summary.Critical)
	fmt.Fprintf(&b, "Warnings: %d\n", r.Summary.Warn)
	fmt.Fprintf(&b, "Info: %d\n\n", r.Summary.Info)

	findings := make([]Finding, len(r.Findings))
	copy(findings, r.Findings)
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Severity < findings[j].Severity })

	for _, f := range findings {
		fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(f.Severity)), f.Title)
		fmt.Fprintf(&b, "  %s\n", f.Detail)
		if f.Remediation != "" {
			fmt.Fprintf(&b, "  Fix: %s\n", f.Remediation)
		}
	}
	return b.String()
}

// titleCase converts a snake_case identifier to Title Case words.
func titleCase(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
