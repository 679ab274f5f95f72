package kernel

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/huangzesen/heliospice/internal/mission"
)

// DirectoryListing is the result of scanning one remote kernel
// directory for .bsp files.
type DirectoryListing struct {
	URL         string   `json:"url"`
	AllBSPFiles []string `json:"all_bsp_files"`
	Error       string   `json:"error,omitempty"`
}

// RemoteReport compares a mission's configured kernel set against the
// .bsp files actually present in the remote archive directories.
type RemoteReport struct {
	Mission         string             `json:"mission"`
	ConfiguredFiles []string           `json:"configured_files"`
	Directories     []DirectoryListing `json:"directories"`
	OtherFiles      []string           `json:"other_files"`
}

// CheckRemote scans the archive directories of a single-file mission
// for .bsp files missing from the configured set, e.g. newer
// reconstructions. Per-directory fetch failures are reported in the
// listing rather than failing the whole check.
func (m *Manager) CheckRemote(ctx context.Context, missionKey string) (*RemoteReport, error) {
	if mission.IsSegmented(missionKey) {
		return nil, fmt.Errorf("%w: %s, remote checks only support single-file missions", ErrSegmented, missionKey)
	}
	kernels, ok := mission.Kernels[missionKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %s)", ErrNoKernels, missionKey,
			strings.Join(fixedMissionKeys(), ", "))
	}

	configured := make([]string, 0, len(kernels))
	for name := range kernels {
		configured = append(configured, name)
	}
	sort.Strings(configured)

	report := &RemoteReport{
		Mission:         missionKey,
		ConfiguredFiles: configured,
	}

	configuredSet := make(map[string]struct{}, len(configured))
	for _, name := range configured {
		configuredSet[name] = struct{}{}
	}

	otherSet := make(map[string]struct{})
	for _, dirURL := range parentDirs(kernels) {
		entry := DirectoryListing{URL: dirURL}
		files, err := m.listRemoteBSP(ctx, dirURL)
		if err != nil {
			entry.Error = err.Error()
			entry.AllBSPFiles = []string{}
		} else {
			entry.AllBSPFiles = files
		}
		report.Directories = append(report.Directories, entry)

		for _, f := range files {
			if _, ok := configuredSet[f]; !ok {
				otherSet[f] = struct{}{}
			}
		}
	}

	report.OtherFiles = make([]string, 0, len(otherSet))
	for f := range otherSet {
		report.OtherFiles = append(report.OtherFiles, f)
	}
	sort.Strings(report.OtherFiles)
	return report, nil
}

// parentDirs derives the unique parent directory URLs of a kernel set,
// preserving first-seen order.
func parentDirs(kernels map[string]string) []string {
	urls := make([]string, 0, len(kernels))
	for _, u := range kernels {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	var dirs []string
	seen := make(map[string]struct{})
	for _, u := range urls {
		idx := strings.LastIndex(u, "/")
		if idx < 0 {
			continue
		}
		dir := u[:idx+1]
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// listRemoteBSP fetches an HTML directory listing and returns the
// sorted .bsp anchor hrefs.
func (m *Manager) listRemoteBSP(ctx context.Context, dirURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "heliospice/1.0 (SPICE kernel cache)")

	resp, err := m.dl.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse directory listing: %w", err)
	}

	var files []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.HasSuffix(strings.ToLower(attr.Val), ".bsp") {
					files = append(files, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.Strings(files)
	return files, nil
}
