package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	"quiz-engine/internal/domain"
)

var catalogExtensions = []string{".json", ".yaml", ".yml"}

// CatalogLoader reads quizzes from a directory holding one <quizId>.json,
// .yaml or .yml file per quiz.
type CatalogLoader struct {
	fs  afero.Fs
	dir string
}

func NewCatalogLoader(fsys afero.Fs, dir string) *CatalogLoader {
	return &CatalogLoader{fs: fsys, dir: dir}
}

func (l *CatalogLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || strings.ContainsAny(quizID, `/\`) || quizID == "." || quizID == ".." {
		return domain.Quiz{}, fmt.Errorf("%w: %q", domain.ErrQuizNotFound, quizID)
	}
	for _, ext := range catalogExtensions {
		path := filepath.Join(l.dir, quizID+ext)
		data, err := afero.ReadFile(l.fs, path)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", quizID, err)
		}
		return decodeQuiz(quizID, ext, data)
	}
	return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
}

// QuizIDs lists the quizzes available in the directory.
func (l *CatalogLoader) QuizIDs() ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.dir, err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isCatalogExt(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func decodeQuiz(quizID, ext string, data []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &quiz)
	} else {
		err = yaml.Unmarshal(data, &quiz)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz %s: %w", quizID, err)
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, fmt.Errorf("quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

func isCatalogExt(ext string) bool {
	for _, e := range catalogExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
