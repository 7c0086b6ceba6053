package server

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"mvdan.cc/sh/v3/fileutil"

	"github.com/matkrin/tagd/internal/config"
	"github.com/matkrin/tagd/internal/inlay"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/outline"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
	"github.com/matkrin/tagd/internal/utils"
)

// Document is an open script: its buffer, the session its tags are created
// through and the result of the latest tag pass.
type Document struct {
	URI     string
	Buffer  *text.Buffer
	Session *tagging.Session

	mu   sync.Mutex
	pass *TagPass
}

// Pass returns the latest tag pass, nil before the first one.
func (d *Document) Pass() *TagPass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pass
}

type Config struct {
	ExcludeDirs     []string
	TagDebounceTime time.Duration
	InlayHints      inlay.Options
	Outline         outline.Options
	HintFormLines   int
}

// NewConfig takes the server settings from a loaded config file.
func NewConfig(c *config.Config) Config {
	return Config{
		ExcludeDirs:     c.ExcludeDirs,
		TagDebounceTime: c.Debounce.Duration,
		InlayHints: inlay.Options{
			ParameterNames: c.InlayHints.ParameterNames,
			Escapes:        c.InlayHints.Escapes,
		},
		Outline: outline.Options{
			CollapseRegions: c.Folding.CollapseRegions,
		},
		HintFormLines: c.Folding.HintFormLines,
	}
}

type State struct {
	mu                sync.RWMutex
	Documents         map[string]*Document
	WorkspaceFolders  []lsp.WorkspaceFolder
	Config            Config
	RefreshSupport    bool
	ShutdownRequested bool
}

func NewState(config Config) *State {
	return &State{
		Documents:         make(map[string]*Document),
		Config:            config,
		ShutdownRequested: false,
	}
}

// OpenDocument starts a new buffer for uri, replacing any previous one.
func (s *State) OpenDocument(uri, documentText string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	document := &Document{
		URI:     uri,
		Buffer:  text.NewBuffer(uri, documentText),
		Session: tagging.NewSession(nil, s.Config.HintFormLines),
	}
	s.Documents[uri] = document
	return document
}

func (s *State) Document(uri string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Documents[uri]
}

func (s *State) CloseDocument(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Documents, uri)
}

func (s *State) OpenDocuments() []*Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	documents := make([]*Document, 0, len(s.Documents))
	for _, document := range s.Documents {
		documents = append(documents, document)
	}
	return documents
}

func (s *State) CurrentConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Config
}

func (s *State) UpdateConfig(update func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.Config)
}

// Find sh-files and return their filepaths
func (s *State) WorkspaceShFiles() []string {
	var shFiles []string
	var mu sync.Mutex
	var wg sync.WaitGroup

	s.mu.RLock()
	folders := slices.Clone(s.WorkspaceFolders)
	excludeDirs := slices.Clone(s.Config.ExcludeDirs)
	s.mu.RUnlock()

	for _, folder := range folders {
		dirpath, err := utils.UriToPath(folder.URI)
		if err != nil {
			continue
		}

		filepath.WalkDir(dirpath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() && slices.Contains(excludeDirs, d.Name()) {
				return fs.SkipDir
			}

			switch fileutil.CouldBeScript2(d) {
			case fileutil.ConfIsScript:
				mu.Lock()
				shFiles = append(shFiles, path)
				mu.Unlock()
			case fileutil.ConfIfShebang:
				wg.Add(1)
				go func(path string) {
					defer wg.Done()
					if hasShebang(path) {
						mu.Lock()
						shFiles = append(shFiles, path)
						mu.Unlock()
					}
				}(path)
			}
			return nil
		})
	}

	wg.Wait()
	slices.Sort(shFiles)
	return shFiles
}

func hasShebang(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	// a shebang line fits in the first few hundred bytes
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return false
	}
	return fileutil.HasShebang(head[:n])
}
