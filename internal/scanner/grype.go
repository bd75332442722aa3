// Package scanner runs vulnerability scans against locally built images.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/umapps/aci-deploy/internal/runner"
)

var (
	ErrUnexpectedOutput = errors.New("unexpected scanner output")

	grypeVersionRegex = regexp.MustCompile(`(?m)^Version:\s+v?(\S+)`)
)

// Severities in descending order of importance.
var Severities = []string{"Critical", "High", "Medium", "Low", "Negligible", "Unknown"}

type Scanner interface {
	Name() string
	Version(ctx context.Context) (string, error)
	Scan(ctx context.Context, image string) (*Report, error)
}

type Finding struct {
	Id       string
	Severity string
	Package  string
	Version  string
}

// Report groups the findings of a scan. Findings are sorted by severity then id.
type Report struct {
	Image    string
	Findings []Finding
	Counts   map[string]int
}

// Total returns the number of findings.
func (r *Report) Total() int {
	return len(r.Findings)
}

// AtLeast returns the findings of the given severity or worse.
func (r *Report) AtLeast(severity string) []Finding {
	limit := severityRank(severity)
	var out []Finding
	for _, f := range r.Findings {
		if severityRank(f.Severity) <= limit {
			out = append(out, f)
		}
	}
	return out
}

// Summary renders counts as "Critical: 1, High: 3", skipping empty severities.
func (r *Report) Summary() string {
	var parts []string
	for _, s := range Severities {
		if n := r.Counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", s, n))
		}
	}
	if len(parts) == 0 {
		return "no vulnerabilities found"
	}
	return strings.Join(parts, ", ")
}

type GrypeScanner struct {
	runner runner.CommandRunner
}

var _ Scanner = &GrypeScanner{}

func NewGrypeScanner(r runner.CommandRunner) *GrypeScanner {
	return &GrypeScanner{runner: r}
}

func (g *GrypeScanner) Name() string {
	return "grype"
}

func (g *GrypeScanner) Version(ctx context.Context) (string, error) {
	result, err := g.runner.Run(ctx, "grype", "version")
	if err != nil {
		return "", err
	}
	match := grypeVersionRegex.FindStringSubmatch(result.Stdout)
	if len(match) < 2 {
		return "", fmt.Errorf("%w: version not found", ErrUnexpectedOutput)
	}
	return match[1], nil
}

// Scan runs grype with results grouped by CVE.
func (g *GrypeScanner) Scan(ctx context.Context, image string) (*Report, error) {
	result, err := g.runner.Run(ctx, "grype", image, "--by-cve", "--output", "json")
	if err != nil {
		return nil, err
	}
	return parseGrypeReport(image, []byte(result.Stdout))
}

type grypeDocument struct {
	Matches []struct {
		Vulnerability struct {
			Id       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"vulnerability"`
		Artifact struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"artifact"`
	} `json:"matches"`
}

func parseGrypeReport(image string, data []byte) (*Report, error) {
	var doc grypeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedOutput, err)
	}

	report := &Report{
		Image:  image,
		Counts: map[string]int{},
	}
	for _, m := range doc.Matches {
		severity := normalizeSeverity(m.Vulnerability.Severity)
		report.Findings = append(report.Findings, Finding{
			Id:       m.Vulnerability.Id,
			Severity: severity,
			Package:  m.Artifact.Name,
			Version:  m.Artifact.Version,
		})
		report.Counts[severity]++
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		ri, rj := severityRank(report.Findings[i].Severity), severityRank(report.Findings[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return report.Findings[i].Id < report.Findings[j].Id
	})
	return report, nil
}

func normalizeSeverity(s string) string {
	for _, known := range Severities {
		if strings.EqualFold(s, known) {
			return known
		}
	}
	return "Unknown"
}

func severityRank(s string) int {
	for i, known := range Severities {
		if strings.EqualFold(s, known) {
			return i
		}
	}
	return len(Severities) - 1
}
