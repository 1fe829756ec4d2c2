// Package execstore manages the on-disk execution layout:
//
//	executions/
//	  exec_<ts>_<jobid8>/
//	    metadata.json
//	    TEXT/<device>_<slug>_<ts>.txt
//	    JSON/<device>_<slug>_<ts>.json
//	  current -> exec_<ts>_<jobid8>
//
// Artifacts are write-once; only the current pointer mutates, and its
// update is atomic against readers.
package execstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/netscope-network/netscope/pkg/util"
)

// CurrentName is the pointer entry naming the latest successful execution.
const CurrentName = "current"

// Store is rooted at the executions directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create executions dir: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the executions directory.
func (s *Store) Root() string { return s.root }

// NewExecutionID mints an execution id from the start time and job id.
func NewExecutionID(jobID string, t time.Time) string {
	return fmt.Sprintf("exec_%s_%s", t.Format("20060102_150405"), util.ShortID(jobID))
}

// Execution is one execution directory.
type Execution struct {
	ID  string
	Dir string
}

// TextDir returns the raw-output directory.
func (e Execution) TextDir() string { return filepath.Join(e.Dir, "TEXT") }

// JSONDir returns the structured-output directory.
func (e Execution) JSONDir() string { return filepath.Join(e.Dir, "JSON") }

// MetadataPath returns the metadata record path.
func (e Execution) MetadataPath() string { return filepath.Join(e.Dir, "metadata.json") }

// Create makes the execution directory with its TEXT and JSON subdirs.
func (s *Store) Create(executionID string) (Execution, error) {
	e := Execution{ID: executionID, Dir: filepath.Join(s.root, executionID)}
	for _, dir := range []string{e.Dir, e.TextDir(), e.JSONDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Execution{}, fmt.Errorf("create execution dir: %w", err)
		}
	}
	util.Logger.Infof("created execution directory %s", e.Dir)
	return e, nil
}

// Open returns the execution for an existing id.
func (s *Store) Open(executionID string) (Execution, error) {
	e := Execution{ID: executionID, Dir: filepath.Join(s.root, executionID)}
	if _, err := os.Stat(e.Dir); err != nil {
		return Execution{}, fmt.Errorf("execution %s: %w", executionID, err)
	}
	return e, nil
}

// List returns all execution ids, newest first by name (ids embed their
// start timestamp, so lexical order is chronological).
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "exec_") {
			ids = append(ids, entry.Name())
		}
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}

// SetCurrent atomically repoints the current pointer at the execution.
// A replacement symlink is created under a temporary name and renamed over
// the old one, so readers always resolve either the old or the new target.
func (s *Store) SetCurrent(executionID string) error {
	target := executionID // relative: the pointer lives next to the dirs
	link := filepath.Join(s.root, CurrentName)
	tmp := link + ".tmp"

	os.Remove(tmp)
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("create current pointer: %w", err)
	}
	if err := os.Rename(tmp, link); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("repoint current: %w", err)
	}
	util.Logger.Infof("current execution -> %s", executionID)
	return nil
}

// Current resolves the current pointer to its execution.
func (s *Store) Current() (Execution, error) {
	link := filepath.Join(s.root, CurrentName)
	target, err := os.Readlink(link)
	if err != nil {
		return Execution{}, fmt.Errorf("no current execution: %w", err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.root, target)
	}
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return Execution{}, fmt.Errorf("current execution missing: %s", target)
	}
	return Execution{ID: filepath.Base(target), Dir: target}, nil
}

// WriteFileAtomic writes data via a temp file, fsyncs, and renames into
// place so readers never observe a partial artifact.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// MetadataDevice is one device entry in the metadata record.
type MetadataDevice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"`
}

// MetadataResults summarizes job-level counters at completion.
type MetadataResults struct {
	TotalDevices     int `json:"total_devices"`
	CompletedDevices int `json:"completed_devices"`
	ProgressPercent  int `json:"progress_percent"`
}

// Metadata is the execution record written at job start and finalized at
// job end.
type Metadata struct {
	ExecutionID  string           `json:"execution_id"`
	JobID        string           `json:"job_id"`
	Timestamp    string           `json:"timestamp"`
	StartTime    string           `json:"start_time,omitempty"`
	EndTime      string           `json:"end_time,omitempty"`
	Status       string           `json:"status"`
	Devices      []MetadataDevice `json:"devices"`
	Commands     []string         `json:"commands"`
	TotalDevices int              `json:"total_devices"`
	Results      *MetadataResults `json:"results,omitempty"`
}

// WriteMetadata persists the metadata record atomically.
func (e Execution) WriteMetadata(md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(e.MetadataPath(), data)
}

// ReadMetadata loads the metadata record.
func (e Execution) ReadMetadata() (Metadata, error) {
	var md Metadata
	data, err := os.ReadFile(e.MetadataPath())
	if err != nil {
		return md, err
	}
	err = json.Unmarshal(data, &md)
	return md, err
}

// ArtifactFile describes one captured output file.
type ArtifactFile struct {
	Name      string
	Path      string
	Device    string
	Timestamp time.Time
}

// listArtifacts scans a directory for artifact files with the given
// extension, parsing device and timestamp from the filename. Files that
// do not follow the naming scheme are skipped.
func listArtifacts(dir, ext string) ([]ArtifactFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ArtifactFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		device, ts, ok := util.ParseOutputFilename(base)
		if !ok {
			continue
		}
		files = append(files, ArtifactFile{
			Name:      name,
			Path:      filepath.Join(dir, name),
			Device:    device,
			Timestamp: ts,
		})
	}
	return files, nil
}

// TextFiles lists the raw text artifacts of the execution.
func (e Execution) TextFiles() ([]ArtifactFile, error) {
	return listArtifacts(e.TextDir(), ".txt")
}

// JSONFiles lists the structured artifacts of the execution.
func (e Execution) JSONFiles() ([]ArtifactFile, error) {
	return listArtifacts(e.JSONDir(), ".json")
}
