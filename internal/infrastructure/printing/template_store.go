package printing

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ayash13/tulip-sub000/internal/domain/letter"
	"github.com/google/uuid"
)

// LayoutStore manages the HTML layouts. Files in an external directory
// override the embedded ones with the same name.
type LayoutStore struct {
	externalDir string
	layouts     map[string]*Layout
	mu          sync.RWMutex
}

// Layout is a loaded layout ready for the TemplateEngine
type Layout struct {
	ID      string // stable UUIDv5 derived from the key
	Key     string
	Type    letter.LetterType
	Name    string
	Hints   letter.LayoutHints
	Content string
}

// LayoutStoreConfig configures the layout store
type LayoutStoreConfig struct {
	// ExternalDir is the directory to load layouts from.
	// If empty or a file is missing there, embedded layouts are used.
	ExternalDir string
}

// NewLayoutStore creates a layout store and loads every layout
func NewLayoutStore(config *LayoutStoreConfig) (*LayoutStore, error) {
	store := &LayoutStore{}
	if config != nil {
		store.externalDir = config.ExternalDir
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *LayoutStore) load() error {
	partials, err := s.loadContent("templates/partials.html")
	if err != nil {
		return fmt.Errorf("failed to load layout partials: %w", err)
	}

	defaults := GetDefaultLayouts()
	layouts := make(map[string]*Layout, len(defaults))
	for _, dl := range defaults {
		content, err := s.loadContent(dl.FilePath)
		if err != nil {
			return fmt.Errorf("failed to load layout %s: %w", dl.Key, err)
		}
		if dl.Body {
			content = partials + "\n" + content
		}
		layouts[dl.Key] = &Layout{
			ID:      generateLayoutID("letter-layout", dl.Key).String(),
			Key:     dl.Key,
			Type:    dl.Type,
			Name:    dl.Name,
			Hints:   dl.Hints,
			Content: content,
		}
	}

	s.mu.Lock()
	s.layouts = layouts
	s.mu.Unlock()
	return nil
}

// loadContent loads layout content from external dir or embedded
func (s *LayoutStore) loadContent(embeddedPath string) (string, error) {
	if s.externalDir != "" {
		externalPath := filepath.Join(s.externalDir, filepath.Base(embeddedPath))
		if content, err := os.ReadFile(externalPath); err == nil {
			return string(content), nil
		}
	}
	return LoadTemplateContent(embeddedPath)
}

// Get returns the layout for a key, or nil
func (s *LayoutStore) Get(key string) *Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layouts[key]
}

// ForType returns the body layout of a letter type, or nil
func (s *LayoutStore) ForType(lt letter.LetterType) *Layout {
	return s.Get(lt.String())
}

// All returns every loaded layout
func (s *LayoutStore) All() []*Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Layout, 0, len(s.layouts))
	for _, l := range s.layouts {
		result = append(result, l)
	}
	return result
}

// Reload reloads all layouts from disk/embedded
func (s *LayoutStore) Reload() error {
	return s.load()
}

// generateLayoutID generates a stable UUID v5 so the same layout always has the same ID
func generateLayoutID(kind, key string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // URL namespace
	return uuid.NewSHA1(namespace, []byte(kind+":"+key))
}
