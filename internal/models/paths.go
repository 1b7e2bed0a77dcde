// Package models resolves the on-disk locations of the recognition model
// files and the token vocabulary.
package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Model filenames inside the models directory.
const (
	EncoderFilename = "formula_encoder.onnx"
	DecoderFilename = "formula_decoder.onnx"
	VocabFilename   = "formula_vocab.txt"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "TESTFLOW_MODELS_DIR"

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory.
// Priority: explicit parameter, environment variable, project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// ResolveEncoderPath returns the encoder model path. An explicit path wins
// over the models directory.
func ResolveEncoderPath(explicit, modelsDir string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(GetModelsDir(modelsDir), EncoderFilename)
}

// ResolveDecoderPath returns the decoder model path.
func ResolveDecoderPath(explicit, modelsDir string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(GetModelsDir(modelsDir), DecoderFilename)
}

// ResolveVocabPath returns the vocabulary file path.
func ResolveVocabPath(explicit, modelsDir string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(GetModelsDir(modelsDir), VocabFilename)
}

// ValidateModelFiles checks that every required model file exists.
func ValidateModelFiles(encoderPath, decoderPath, vocabPath string) error {
	for _, p := range []string{encoderPath, decoderPath, vocabPath} {
		if p == "" {
			return errors.New("model path is empty")
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("model file not found: %s", p)
		}
	}
	return nil
}
