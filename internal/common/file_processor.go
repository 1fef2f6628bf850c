package common

import (
	"fmt"
	"os"
	"path/filepath"

	"resumegenius/internal/errors"
	"resumegenius/internal/extract"
)

// FileProcessor reads resume files through the extractor and writes output
type FileProcessor struct {
	extractor *extract.Extractor
	logger    *errors.Logger
}

// NewFileProcessor creates a file processor. A non-positive limit uses the
// extractor default.
func NewFileProcessor(maxFileSize int64, logger *errors.Logger) *FileProcessor {
	return &FileProcessor{extractor: extract.New(maxFileSize), logger: logger}
}

// ReadFile returns the raw bytes of a file
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	return content, nil
}

// ExtractFile reads a .txt, .pdf or .docx file and returns its text
func (fp *FileProcessor) ExtractFile(filename string) (string, error) {
	if err := fp.checkInputFile(filename); err != nil {
		return "", err
	}

	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}

	text, err := fp.extractor.Extract(filepath.Base(filename), data)
	if err != nil {
		return "", err
	}
	if fp.logger != nil {
		fp.logger.Debug("Extracted text",
			"filename", filename,
			"size", extract.FormatSize(int64(len(data))),
			"chars", len([]rune(text)))
	}
	return text, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateAndReadFiles extracts the text of every input file
func (fp *FileProcessor) ValidateAndReadFiles(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		text, err := fp.ExtractFile(filename)
		if err != nil {
			return nil, err
		}
		contents[i] = text
	}
	return contents, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	dir := filepath.Dir(filename)
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file %s: %s is not a directory", filename, dir), nil)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file %s: cannot create %s", filename, dir), err)
	}

	return nil
}

// checkInputFile rejects resume paths before any bytes are read: missing
// files, directories, unsupported extensions and files over the limit.
func (fp *FileProcessor) checkInputFile(filename string) error {
	if filename == "" {
		return errors.NewValidationError("INVALID_INPUT_FILE", "Input filename cannot be empty", nil)
	}

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot access file: %s", filename), err)
	}
	if info.IsDir() {
		return errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Path is a directory, not a file: %s", filename), nil)
	}

	if !extract.IsSupported(filename) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			fmt.Sprintf("Unsupported file type %q, expected one of %v", extract.Extension(filename), extract.SupportedExtensions()), nil)
	}
	if limit := fp.extractor.MaxFileSize(); info.Size() > limit {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File is %s, limit is %s", extract.FormatSize(info.Size()), extract.FormatSize(limit)), nil).
			WithContext("filename", filename)
	}
	return nil
}
