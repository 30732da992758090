package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/caffe-cappuccino/dl/pkg/service"
)

var (
	serverAddr = flag.String("addr", "http://localhost:8080", "Translation server base URL")
	sourceLang = flag.String("source", "English", "Source language display name")
	targetLang = flag.String("target", "Spanish", "Target language display name")
	textFile   = flag.String("file", "", "Path to text file to translate")
	text       = flag.String("text", "", "Text to translate (if file not provided)")
	export     = flag.Bool("export", false, "Write the result to translation_<src>_<tgt>.txt")
	timeout    = flag.Duration("timeout", 15*time.Minute, "Request timeout (cold model loads are slow)")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Read text to translate
	var textToTranslate string
	if *textFile != "" {
		data, err := os.ReadFile(*textFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *textFile)
		}
		textToTranslate = string(data)
	} else if *text != "" {
		textToTranslate = *text
	} else {
		logger.Fatal("Either -file or -text must be provided")
	}

	logger.WithFields(logrus.Fields{
		"server":      *serverAddr,
		"source_lang": *sourceLang,
		"target_lang": *targetLang,
		"text_length": len(textToTranslate),
	}).Info("Sending translation request...")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"source": *sourceLang,
		"target": *targetLang,
		"text":   textToTranslate,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *serverAddr+"/api/v1/translate", bytes.NewReader(payload))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.WithError(err).Fatal("Request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			logger.WithFields(logrus.Fields{
				"status_code": resp.StatusCode,
				"detail":      apiErr.Detail,
			}).Fatalf("Translation failed: %s", apiErr.Error)
		}
		logger.Fatalf("Translation failed: status %d: %s", resp.StatusCode, string(body))
	}

	var result service.Result
	if err := json.Unmarshal(body, &result); err != nil {
		logger.WithError(err).Fatal("Failed to decode response")
	}

	logger.WithFields(logrus.Fields{
		"model_id":       result.ModelID,
		"inference_time": result.InferenceSeconds,
		"duration_ms":    time.Since(startTime).Milliseconds(),
	}).Info("Translation completed")

	fmt.Println(result.Text)

	if *export {
		filename := service.ExportFilename(result.SourceCode, result.TargetCode)
		if err := os.WriteFile(filename, []byte(result.Text), 0644); err != nil {
			logger.WithError(err).Fatalf("Failed to write %s", filename)
		}
		logger.WithFields(logrus.Fields{
			"file": filename,
		}).Info("Result exported")
	}
}
