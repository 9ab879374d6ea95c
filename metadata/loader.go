package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gantryci/gantry/logger"
	"github.com/gantryci/gantry/model"
	"go.uber.org/zap"
)

// LoadDir registers every workflow file found in dir. Files that fail to
// parse are logged and skipped so one bad definition does not block startup.
func LoadDir(service MetadataService, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(entry.Name(), ext)
		wf, err := model.WorkflowFromFile(name, contents)
		if err != nil {
			logger.Error("skipping invalid workflow file", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		if err := service.SaveWorkflow(wf); err != nil {
			return err
		}
		logger.Info("workflow loaded", zap.String("workflow", wf.Name), zap.String("file", entry.Name()))
	}
	return nil
}
