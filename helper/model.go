package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// DefaultModelDir is used when no model directory is configured
const DefaultModelDir = "./models"

// ModelPath returns the local directory a model is stored in
func ModelPath(modelName, modelDir string) string {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	return filepath.Join(modelDir, strings.ReplaceAll(modelName, "/", "_"))
}

// PrepareModel downloads the model if it doesn't exist and returns the model path
func PrepareModel(modelName, onnxFilePath, modelDir string) (string, error) {
	if modelDir == "" {
		modelDir = DefaultModelDir
	}
	modelPath := ModelPath(modelName, modelDir)

	// Check if model exists, if not download it
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(modelDir, 0750); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		if onnxFilePath != "" {
			downloadOptions.OnnxFilePath = onnxFilePath
		}
		downloadedPath, err := hugot.DownloadModel(modelName, modelDir, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model %s: %w", modelName, err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
