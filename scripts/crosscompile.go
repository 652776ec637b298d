package main

// crosscompile.go builds release binaries for every supported platform
// and stamps main.CompileVersion so the served pages and the -version
// flag report the build number. The number aligns with GitHub Actions
// run numbers, so local and CI builds share one sequence.
//
// The whole module is pure Go (the sqlite driver needs no cgo), so every
// target builds with CGO_ENABLED=0.

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func main() {
	goModTidy := exec.Command("go", "mod", "tidy")
	if err := goModTidy.Run(); err != nil {
		fmt.Printf("go mod tidy - failed: %s\n", err)
	}

	goSourceFile, err := findMainGoFile()
	if err != nil {
		log.Fatalf("Error finding main Go file: %v", err)
	}

	baseName := filepath.Base(goSourceFile)
	executionFile := strings.TrimSuffix(baseName, filepath.Ext(baseName))

	version, err := getGitVersion()
	if err != nil {
		log.Fatalf("Error getting Git version: %v", err)
	}
	fmt.Printf("Building version: %s\n", version)

	gitRootPath, err := getGitRootPath()
	if err != nil {
		log.Fatalf("Error getting Git root path: %v", err)
	}

	binariesPath := filepath.Join(gitRootPath, "binaries", version)
	if err := os.MkdirAll(binariesPath, os.ModePerm); err != nil {
		log.Fatalf("Error creating binaries directory: %v", err)
	}

	latestLink := filepath.Join(gitRootPath, "binaries", "latest")
	os.Remove(latestLink)
	if err := os.Symlink(version, latestLink); err != nil {
		log.Printf("Warning: Failed to create symlink 'latest': %v", err)
	}

	osList := []string{
		"android", "aix", "darwin", "dragonfly", "freebsd",
		"illumos", "ios", "js", "linux", "netbsd",
		"openbsd", "plan9", "solaris", "windows", "wasip1", "zos",
	}

	archList := []string{
		"amd64", "386", "arm", "arm64", "loong64", "mips64",
		"mips64le", "mips", "mipsle", "ppc64",
		"ppc64le", "riscv64", "s390x", "wasm",
	}

	for _, osName := range osList {
		for _, arch := range archList {
			targetOSName := osName
			execFileName := executionFile

			if osName == "windows" {
				execFileName += ".exe"
			} else if osName == "darwin" {
				targetOSName = "mac"
			}

			outputDir := filepath.Join(binariesPath, targetOSName, arch)
			if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
				log.Printf("Error creating output directory %s: %v", outputDir, err)
				continue
			}

			outputPath := filepath.Join(outputDir, execFileName)
			ldflags := fmt.Sprintf("-X 'main.CompileVersion=%s'", version)

			buildCmd := exec.Command("go", "build", "-ldflags", ldflags, "-o", outputPath, goSourceFile)
			buildCmd.Env = append(os.Environ(), "GOOS="+osName, "GOARCH="+arch, "CGO_ENABLED=0")
			if err := buildCmd.Run(); err != nil {
				// Unsupported pair; drop the empty directory.
				if err := os.RemoveAll(outputDir); err != nil {
					log.Printf("Error removing output directory %s: %v", outputDir, err)
				}
				continue
			}

			if err := os.Chmod(outputPath, 0755); err != nil {
				log.Printf("Error setting permissions on %s: %v", outputPath, err)
			}
			fmt.Printf("Successfully built %s for %s/%s\n", execFileName, osName, arch)
		}
	}
}

// ----- Git helpers -----

func getGitRootPath() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// getGitVersion resolves the build number: environment variable first,
// then the GitHub API, then the commit count as a fallback. The run
// number and the dirty check run concurrently.
func getGitVersion() (string, error) {
	runChan := make(chan string)
	dirtyChan := make(chan bool)
	errChan := make(chan error, 2)

	go func() {
		if env := os.Getenv("GITHUB_RUN_NUMBER"); env != "" {
			runChan <- env
			return
		}
		n, err := fetchNextRunNumber()
		if err != nil {
			errChan <- err
			return
		}
		runChan <- n
	}()

	go func() {
		cmd := exec.Command("git", "status", "--porcelain")
		output, err := cmd.Output()
		if err != nil {
			errChan <- err
			return
		}
		dirtyChan <- len(strings.TrimSpace(string(output))) > 0
	}()

	var runNumber string
	dirty := false
	for i := 0; i < 2; i++ {
		select {
		case rn := <-runChan:
			runNumber = rn
		case d := <-dirtyChan:
			dirty = d
		case err := <-errChan:
			return "", err
		}
	}

	if runNumber == "" {
		cmd := exec.Command("git", "rev-list", "--count", "HEAD")
		output, err := cmd.Output()
		if err != nil {
			return "", err
		}
		runNumber = strings.TrimSpace(string(output))
	}

	if dirty {
		runNumber += "-dirty"
	}
	return runNumber, nil
}

// ----- File helpers -----

func findMainGoFile() (string, error) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		return "", err
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		if strings.Contains(string(content), "package main") && strings.Contains(string(content), "func main()") {
			return file, nil
		}
	}
	return "", fmt.Errorf("no main Go file found in the current directory")
}

// ----- Version helpers -----

// fetchNextRunNumber retrieves the next GitHub Actions run number so
// local builds share numbering with CI builds.
func fetchNextRunNumber() (string, error) {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	owner, repo, err := parseGitHubRepo(strings.TrimSpace(string(output)))
	if err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/actions/workflows/release.yml/runs?per_page=1", owner, repo)
	resp, err := http.Get(apiURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		WorkflowRuns []struct {
			RunNumber int `json:"run_number"`
		} `json:"workflow_runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.WorkflowRuns) == 0 {
		return "1", nil
	}
	return strconv.Itoa(result.WorkflowRuns[0].RunNumber + 1), nil
}

// parseGitHubRepo extracts owner and repository from the remote URL.
func parseGitHubRepo(remote string) (string, string, error) {
	if strings.HasPrefix(remote, "git@") {
		parts := strings.SplitN(remote, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid remote URL")
		}
		remote = parts[1]
	} else if strings.HasPrefix(remote, "https://") || strings.HasPrefix(remote, "http://") {
		u, err := url.Parse(remote)
		if err != nil {
			return "", "", err
		}
		remote = strings.TrimPrefix(u.Path, "/")
	}
	remote = strings.TrimSuffix(remote, ".git")
	parts := strings.Split(remote, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("unable to parse owner and repo")
	}
	return parts[0], parts[1], nil
}
