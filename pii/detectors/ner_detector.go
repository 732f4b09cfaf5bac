package detectors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/daulet/tokenizers"
	onnxruntime "github.com/yalue/onnxruntime_go"

	"github.com/hannes/pii-shield/pii"
)

// nerMaxSequenceLength is the model's maximum input length in tokens
const nerMaxSequenceLength = 512

// nerMinTokenConfidence is the softmax probability below which a
// token prediction is treated as outside any entity
const nerMinTokenConfidence = 0.5

// NERDetector runs an ONNX token-classification model to find PII
// that pattern detectors cannot: person names, addresses and dates in
// context. It implements the same Detector contract as the pattern
// detectors and plugs into the same registry.
//
// The session is initialized lazily on first use and must be released
// with Close.
type NERDetector struct {
	mu           sync.Mutex // inference reuses the static tensors
	tokenizer    *tokenizers.Tokenizer
	session      *onnxruntime.AdvancedSession
	inputTensor  *onnxruntime.Tensor[int64]
	maskTensor   *onnxruntime.Tensor[int64]
	outputTensor *onnxruntime.Tensor[float32]
	id2label     map[string]string
	numLabels    int
	modelPath    string
}

// NewNERDetector creates an NER detector from an ONNX model, a
// tokenizer file, and a label-mapping JSON file with an "id2label"
// object.
func NewNERDetector(modelPath, tokenizerPath, labelPath string) (*NERDetector, error) {
	if libPath := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); libPath != "" {
		onnxruntime.SetSharedLibraryPath(libPath)
	}

	if !onnxruntime.IsInitialized() {
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
		}
	}

	tk, err := tokenizers.FromFile(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	labelData, err := os.ReadFile(labelPath)
	if err != nil {
		if closeErr := tk.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close tokenizer during cleanup: %v\n", closeErr)
		}
		return nil, fmt.Errorf("failed to read label mapping: %w", err)
	}

	var labelConfig struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(labelData, &labelConfig); err != nil {
		if closeErr := tk.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close tokenizer during cleanup: %v\n", closeErr)
		}
		return nil, fmt.Errorf("failed to parse label mapping: %w", err)
	}

	// Label IDs are 0-indexed, so the count is max ID + 1
	numLabels := 0
	for idStr := range labelConfig.ID2Label {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil && id >= numLabels {
			numLabels = id + 1
		}
	}
	if numLabels == 0 {
		numLabels = len(labelConfig.ID2Label)
	}

	return &NERDetector{
		tokenizer: tk,
		id2label:  labelConfig.ID2Label,
		numLabels: numLabels,
		modelPath: modelPath,
	}, nil
}

// GetName returns the name of this detector
func (d *NERDetector) GetName() string {
	return "ner"
}

// Detect runs inference and decodes BIO-tagged tokens into spans
func (d *NERDetector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		if err := d.initializeSession(); err != nil {
			return nil, fmt.Errorf("failed to initialize session: %w", err)
		}
	}

	encoding := d.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnOffsets())

	inputIDs := make([]int64, len(encoding.IDs))
	attentionMask := make([]int64, len(encoding.IDs))
	for i, id := range encoding.IDs {
		inputIDs[i] = int64(id)
		attentionMask[i] = 1
	}
	d.updateInputTensors(inputIDs, attentionMask)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	return d.decodeSpans(text, d.outputTensor.GetData(), len(encoding.IDs), encoding.Offsets), nil
}

// decodeSpans groups consecutive B-/I- tagged tokens into entity
// spans, averaging token confidences across each group
func (d *NERDetector) decodeSpans(text string, outputData []float32, numTokens int, offsets []tokenizers.Offset) []pii.Span {
	if len(offsets) < numTokens {
		numTokens = len(offsets)
	}

	var spans []pii.Span
	var current *pii.Span
	var currentTokens []int
	var confidenceSum float64

	finalize := func() {
		if current == nil || len(currentTokens) == 0 {
			current = nil
			currentTokens = nil
			confidenceSum = 0
			return
		}
		startOffset := offsets[currentTokens[0]]
		endOffset := offsets[currentTokens[len(currentTokens)-1]]
		current.Start = int(startOffset[0])
		current.End = int(endOffset[1])
		current.Text = text[current.Start:current.End]
		current.Confidence = confidenceSum / float64(len(currentTokens))
		if current.End > current.Start {
			spans = append(spans, *current)
		}
		current = nil
		currentTokens = nil
		confidenceSum = 0
	}

	for i := 0; i < numTokens; i++ {
		startIdx := i * d.numLabels
		endIdx := (i + 1) * d.numLabels
		if endIdx > len(outputData) {
			break
		}
		label, confidence := d.bestLabel(outputData[startIdx:endIdx])
		if confidence < nerMinTokenConfidence {
			label = "O"
		}

		isBeginning := strings.HasPrefix(label, "B-")
		isInside := strings.HasPrefix(label, "I-")
		baseLabel := strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
		category := mapNERLabel(baseLabel)

		switch {
		case label != "O" && (isBeginning || current == nil):
			finalize()
			current = &pii.Span{
				Category: category,
				Source:   d.GetName(),
			}
			currentTokens = []int{i}
			confidenceSum = confidence
		case label != "O" && isInside && current != nil && current.Category == category:
			currentTokens = append(currentTokens, i)
			confidenceSum += confidence
		default:
			finalize()
		}
	}
	finalize()

	return spans
}

// bestLabel returns the argmax label and its softmax probability
func (d *NERDetector) bestLabel(logits []float32) (string, float64) {
	maxLogit := float64(-math.MaxFloat64)
	bestClass := 0
	for j, logit := range logits {
		if float64(logit) > maxLogit {
			maxLogit = float64(logit)
			bestClass = j
		}
	}

	var sum float64
	for _, logit := range logits {
		sum += math.Exp(float64(logit))
	}
	confidence := math.Exp(maxLogit) / sum

	label, exists := d.id2label[fmt.Sprintf("%d", bestClass)]
	if !exists {
		label = "O"
	}
	return label, confidence
}

// mapNERLabel maps model label names onto PII categories
func mapNERLabel(label string) pii.Category {
	switch label {
	case "PERSON", "NAME", "FIRSTNAME", "SURNAME", "GIVENNAME", "LASTNAME":
		return pii.CategoryName
	case "LOCATION", "ADDRESS", "STREET", "CITY", "ZIPCODE", "BUILDINGNUM":
		return pii.CategoryAddress
	case "DATEOFBIRTH", "DATE", "DATE_TIME":
		return pii.CategoryDateOfBirth
	case "EMAIL":
		return pii.CategoryEmail
	case "TELEPHONENUM", "PHONE":
		return pii.CategoryPhone
	default:
		return pii.CategoryUnknown
	}
}

// initializeSession creates the tensors and inference session
func (d *NERDetector) initializeSession() error {
	inputShape := onnxruntime.NewShape(1, nerMaxSequenceLength)
	inputTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, nerMaxSequenceLength))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}

	maskTensor, err := onnxruntime.NewTensor(inputShape, make([]int64, nerMaxSequenceLength))
	if err != nil {
		destroyTensors(inputTensor)
		return fmt.Errorf("failed to create mask tensor: %w", err)
	}

	outputShape := onnxruntime.NewShape(1, nerMaxSequenceLength, int64(d.numLabels))
	outputTensor, err := onnxruntime.NewEmptyTensor[float32](outputShape)
	if err != nil {
		destroyTensors(inputTensor, maskTensor)
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := onnxruntime.NewAdvancedSession(d.modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]onnxruntime.Value{inputTensor, maskTensor},
		[]onnxruntime.Value{outputTensor},
		nil)
	if err != nil {
		destroyTensors(inputTensor, maskTensor, outputTensor)
		return fmt.Errorf("failed to create session: %w", err)
	}

	d.session = session
	d.inputTensor = inputTensor
	d.maskTensor = maskTensor
	d.outputTensor = outputTensor
	return nil
}

// updateInputTensors clears and refills the static input tensors
func (d *NERDetector) updateInputTensors(inputIDs, attentionMask []int64) {
	inputData := d.inputTensor.GetData()
	maskData := d.maskTensor.GetData()
	for i := range inputData {
		inputData[i] = 0
		maskData[i] = 0
	}
	copy(inputData, inputIDs)
	copy(maskData, attentionMask)
}

func destroyTensors(tensors ...onnxruntime.Value) {
	for _, tensor := range tensors {
		if err := tensor.Destroy(); err != nil {
			fmt.Printf("Warning: failed to destroy tensor during cleanup: %v\n", err)
		}
	}
}

// Close releases the session, tensors and tokenizer
func (d *NERDetector) Close() error {
	var errs []error

	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy session: %w", err))
		}
	}
	if d.inputTensor != nil {
		if err := d.inputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy input tensor: %w", err))
		}
	}
	if d.maskTensor != nil {
		if err := d.maskTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy mask tensor: %w", err))
		}
	}
	if d.outputTensor != nil {
		if err := d.outputTensor.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy output tensor: %w", err))
		}
	}
	if d.tokenizer != nil {
		if err := d.tokenizer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close tokenizer: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
