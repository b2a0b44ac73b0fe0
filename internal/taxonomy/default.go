package taxonomy

import (
	"fmt"
	"os"
)

// DefaultTaxonomy returns the built-in category set for the speech-to-text
// notebook. Declaration order doubles as the tie-break order.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Default: "notes",
		Categories: []Category{
			{Name: "background-context", Keywords: []string{
				"history", "evolution", "timeline", "origins", "hmm era",
			}},
			{Name: "models", Keywords: []string{
				"whisper", "wav2vec2", "conformer", "hubert", "deepspeech",
				"canary", "parakeet", "seamless", "model comparison",
			}},
			{Name: "data-preparation", Keywords: []string{
				"dataset", "annotation", "transcript", "sample rate",
				"augmentation", "alignment", "common voice", "audio data",
			}},
			{Name: "fine-tuning", Keywords: []string{
				"fine-tune", "fine-tuning", "lora", "peft", "learning rate",
				"hyperparameter", "checkpoint", "epochs", "frozen layers",
			}},
			{Name: "inference", Keywords: []string{
				"inference", "deployment", "latency", "streaming", "serving",
				"batching", "real-time", "endpoint",
			}},
			{Name: "amd", Keywords: []string{
				"amd", "rocm", "mi300", "radeon", "hip kernel",
			}},
			{Name: "mobile-asr", Keywords: []string{
				"mobile", "on-device", "android", "ios", "edge device",
				"coreml", "nnapi",
			}},
			{Name: "formats", Keywords: []string{
				"gguf", "onnx", "safetensors", "quantization", "wav", "flac",
				"codec", "bitrate", "file format",
			}},
			{Name: "vocab", Keywords: []string{
				"vocabulary", "tokenizer", "lexicon", "hotword", "jargon",
				"acronym", "spelling", "language model",
			}},
			{Name: "pitfalls", Keywords: []string{
				"pitfall", "mistake", "gotcha", "overfitting",
				"catastrophic forgetting", "hallucination", "wer regression",
			}},
			{Name: "q-and-a", Keywords: []string{
				"faq", "how do i", "why does", "what is the difference",
			}},
			// Catch-all for everything the keywords miss.
			{Name: "notes", Keywords: nil},
		},
	}
}

// LoadOrInit reads the taxonomy file at path. When the file does not exist
// the built-in default is encoded, persisted to path, and returned, so a
// missing file is a first run rather than an error.
func LoadOrInit(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t := DefaultTaxonomy()
		encoded, encErr := Encode(t)
		if encErr != nil {
			return nil, encErr
		}
		if writeErr := os.WriteFile(path, encoded, 0o644); writeErr != nil {
			return nil, fmt.Errorf("taxonomy: persist defaults: %w", writeErr)
		}
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	return Decode(data)
}
