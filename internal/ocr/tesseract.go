package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type tesseractConfig struct {
	Binary   string `json:"binary"`
	Language string `json:"language"`
}

// tesseractProvider shells out to the tesseract binary in TSV mode. TSV gives
// per-word confidences, which the engine aggregates into a page confidence.
type tesseractProvider struct {
	binary   string
	language string
}

func (p *tesseractProvider) Name() string {
	return "tesseract"
}

func (p *tesseractProvider) Recognize(ctx context.Context, png []byte) (*Result, error) {
	args := []string{"stdin", "stdout"}
	if p.language != "" {
		args = append(args, "-l", p.language)
	}
	args = append(args, "tsv")

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseTSV(stdout.String()), nil
}

// parseTSV reassembles recognized text line by line and averages word-level
// confidences. Tesseract TSV columns:
// level page block par line word left top width height conf text
func parseTSV(output string) *Result {
	var builder strings.Builder
	var confSum float64
	var confCount int
	lastLine := ""

	for i, row := range strings.Split(output, "\n") {
		if i == 0 {
			continue // header
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		level := cols[0]
		if level != "5" {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		lineKey := strings.Join(cols[1:5], ":")
		if builder.Len() > 0 {
			if lineKey == lastLine {
				builder.WriteByte(' ')
			} else {
				builder.WriteByte('\n')
			}
		}
		lastLine = lineKey
		builder.WriteString(word)
		confSum += conf
		confCount++
	}

	result := &Result{Text: strings.TrimSpace(builder.String())}
	if confCount > 0 {
		result.Confidence = confSum / float64(confCount)
	}
	return result
}

func createTesseractProvider(args interface{}) (Provider, error) {
	cfg := &tesseractConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = "tesseract"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("tesseract binary not found: %w", err)
	}
	return &tesseractProvider{
		binary:   binary,
		language: strings.TrimSpace(cfg.Language),
	}, nil
}

func init() {
	Register("tesseract", createTesseractProvider)
}
