// Package gap compares what each branch runs against the newest commit of a
// tool. It performs no I/O; callers load commits and releases and pass them in.
package gap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Commit is the subset of a commit the analyzer needs.
type Commit struct {
	ID      string
	Name    string
	Version string
}

// Release is the active commit of one branch for the analyzed tool.
type Release struct {
	BranchName string
	CommitID   string
	Version    string
}

// Entry is the gap of a single branch.
type Entry struct {
	BranchName       string `json:"branchName"`
	DeployedCommitID string `json:"deployedCommitId"`
	DeployedVersion  string `json:"deployedVersion"`
	LatestCommitID   string `json:"latestCommitId"`
	LatestVersion    string `json:"latestVersion"`
	IsUpToDate       bool   `json:"isUpToDate"`
	Drift            int    `json:"drift"`
}

// Report is the result of Compute.
type Report struct {
	Tool           string   `json:"tool"`
	LatestCommitID string   `json:"latestCommitId,omitempty"`
	LatestVersion  string   `json:"latestVersion,omitempty"`
	Branches       []Entry  `json:"branches"`
	NeverDeployed  []string `json:"neverDeployed"`
}

// Compute reports, for every release, whether it runs latest and how far
// behind it is. branches is the full set of known branch names; those
// without a release end up in NeverDeployed. A nil latest means the tool has
// no commits, in which case every release is reported as up to date.
func Compute(tool string, latest *Commit, releases []Release, branches []string) Report {
	rep := Report{Tool: tool, Branches: []Entry{}, NeverDeployed: []string{}}
	if latest != nil {
		rep.LatestCommitID = latest.ID
		rep.LatestVersion = latest.Version
	}

	deployed := make(map[string]struct{}, len(releases))
	for _, r := range releases {
		deployed[r.BranchName] = struct{}{}
		e := Entry{
			BranchName:       r.BranchName,
			DeployedCommitID: r.CommitID,
			DeployedVersion:  r.Version,
			IsUpToDate:       true,
		}
		if latest != nil {
			e.LatestCommitID = latest.ID
			e.LatestVersion = latest.Version
			if r.CommitID != latest.ID {
				e.IsUpToDate = false
				e.Drift = Drift(r.Version, latest.Version)
			}
		}
		rep.Branches = append(rep.Branches, e)
	}
	sort.Slice(rep.Branches, func(i, j int) bool { return rep.Branches[i].BranchName < rep.Branches[j].BranchName })

	for _, b := range branches {
		if _, ok := deployed[b]; !ok {
			rep.NeverDeployed = append(rep.NeverDeployed, b)
		}
	}
	sort.Strings(rep.NeverDeployed)
	return rep
}

// Drift sums the absolute difference of each dot-separated numeric segment.
// Missing segments count as 0 and a segment that is not a number on either
// side contributes nothing.
func Drift(current, latest string) int {
	cur := strings.Split(current, ".")
	lat := strings.Split(latest, ".")
	n := max(len(cur), len(lat))

	total := 0
	for i := 0; i < n; i++ {
		a, okA := segment(cur, i)
		b, okB := segment(lat, i)
		if !okA || !okB {
			continue
		}
		if d := b - a; d < 0 {
			total -= d
		} else {
			total += d
		}
	}
	return total
}

func segment(parts []string, i int) (int, bool) {
	if i >= len(parts) {
		return 0, true
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0, false
	}
	return v, true
}

// VersionCount is how many branches run one version of a tool.
type VersionCount struct {
	Version     string `json:"version"`
	BranchCount int    `json:"branchCount"`
	IsLatest    bool   `json:"isLatest"`
}

// Summary is the per-tool overview returned by the gap-analysis endpoint.
type Summary struct {
	Tool             string         `json:"tool"`
	LatestVersion    string         `json:"latestVersion"`
	LatestCommitID   string         `json:"latestCommitId"`
	DeployedVersions []VersionCount `json:"deployedVersions"`
}

// Summarize groups releases by version, newest first. Versions that parse as
// semver are ordered semantically and come before the ones that do not.
func Summarize(tool string, latest *Commit, releases []Release) Summary {
	s := Summary{Tool: tool, DeployedVersions: []VersionCount{}}
	if latest != nil {
		s.LatestVersion = latest.Version
		s.LatestCommitID = latest.ID
	}

	counts := map[string]int{}
	for _, r := range releases {
		counts[r.Version]++
	}
	for v, n := range counts {
		s.DeployedVersions = append(s.DeployedVersions, VersionCount{
			Version:     v,
			BranchCount: n,
			IsLatest:    latest != nil && v == latest.Version,
		})
	}
	sort.Slice(s.DeployedVersions, func(i, j int) bool {
		return newer(s.DeployedVersions[i].Version, s.DeployedVersions[j].Version)
	})
	return s
}

func newer(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if !va.Equal(vb) {
			return va.GreaterThan(vb)
		}
		return a > b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a > b
	}
}
