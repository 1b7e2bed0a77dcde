package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	onnxrt "github.com/yalue/onnxruntime_go"

	"github.com/victoMR/testFlow/internal/mempool"
)

// Config holds configuration for the ONNX recognition engine.
type Config struct {
	EncoderPath string // vision encoder model
	DecoderPath string // autoregressive token decoder model
	VocabPath   string // token vocabulary, one token per line
	NumThreads  int    // CPU threads per session (0 for runtime default)
	InputHeight int    // encoder input height; 0 adopts the model's fixed dim
	InputWidth  int    // encoder input width; 0 adopts the model's fixed dim
	Beam        BeamConfig
}

// DefaultConfig returns an engine configuration with standard beam decoding.
func DefaultConfig() Config {
	return Config{
		InputHeight: 192,
		InputWidth:  672,
		Beam:        DefaultBeamConfig(),
	}
}

// Engine recognizes formulas with an ONNX encoder/decoder pair. A single
// mutex serializes inference; the decoder session keeps per-run state and is
// not reentrant.
type Engine struct {
	config  Config
	encoder *onnxrt.DynamicAdvancedSession
	decoder *onnxrt.DynamicAdvancedSession

	encInput  onnxrt.InputOutputInfo
	encOutput onnxrt.InputOutputInfo
	channels  int

	vocab *Vocab
	mu    sync.Mutex
}

// NewEngine creates a recognition engine from the given configuration.
func NewEngine(config Config) (*Engine, error) {
	if config.EncoderPath == "" || config.DecoderPath == "" {
		return nil, errors.New("encoder and decoder model paths cannot be empty")
	}
	if config.VocabPath == "" {
		return nil, errors.New("vocabulary path cannot be empty")
	}
	for _, p := range []string{config.EncoderPath, config.DecoderPath, config.VocabPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", p)
		}
	}

	if err := setONNXLibraryPath(); err != nil {
		return nil, fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
	}
	if !onnxrt.IsInitialized() {
		if err := onnxrt.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
		}
	}

	vocab, err := LoadVocab(config.VocabPath)
	if err != nil {
		return nil, err
	}
	if config.Beam.Width < 1 {
		config.Beam = DefaultBeamConfig()
	}
	config.Beam.BOS = int64(vocab.BOSID)
	config.Beam.EOS = int64(vocab.EOSID)

	encIn, encOut, err := sessionInfo(config.EncoderPath)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	if len(encIn.Dimensions) != 4 {
		return nil, fmt.Errorf("expected 4D encoder input, got %dD", len(encIn.Dimensions))
	}
	channels := 1
	if c := encIn.Dimensions[1]; c > 0 {
		channels = int(c)
	}
	if h := encIn.Dimensions[2]; h > 0 {
		config.InputHeight = int(h)
	}
	if w := encIn.Dimensions[3]; w > 0 {
		config.InputWidth = int(w)
	}
	if config.InputHeight <= 0 || config.InputWidth <= 0 {
		return nil, errors.New("encoder input size unresolved; set InputHeight and InputWidth")
	}

	encoder, err := newSession(config.EncoderPath, encIn, encOut, config.NumThreads)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	decIn, decOut, err := decoderInfo(config.DecoderPath)
	if err != nil {
		_ = encoder.Destroy()
		return nil, fmt.Errorf("decoder: %w", err)
	}
	decoder, err := newDecoderSession(config.DecoderPath, decIn, decOut, config.NumThreads)
	if err != nil {
		_ = encoder.Destroy()
		return nil, fmt.Errorf("decoder: %w", err)
	}

	return &Engine{
		config:    config,
		encoder:   encoder,
		decoder:   decoder,
		encInput:  encIn,
		encOutput: encOut,
		channels:  channels,
		vocab:     vocab,
	}, nil
}

func sessionInfo(modelPath string) (onnxrt.InputOutputInfo, onnxrt.InputOutputInfo, error) {
	inputs, outputs, err := onnxrt.GetInputOutputInfo(modelPath)
	if err != nil {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{}, fmt.Errorf("failed to get model info: %w", err)
	}
	if len(inputs) != 1 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{}, fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return onnxrt.InputOutputInfo{}, onnxrt.InputOutputInfo{}, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	return inputs[0], outputs[0], nil
}

// decoderInfo validates the decoder's token-ids + encoder-memory signature.
func decoderInfo(modelPath string) ([]onnxrt.InputOutputInfo, onnxrt.InputOutputInfo, error) {
	inputs, outputs, err := onnxrt.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, onnxrt.InputOutputInfo{}, fmt.Errorf("failed to get model info: %w", err)
	}
	if len(inputs) != 2 {
		return nil, onnxrt.InputOutputInfo{}, fmt.Errorf("expected 2 inputs (tokens, memory), got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return nil, onnxrt.InputOutputInfo{}, fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	return inputs, outputs[0], nil
}

func newSession(
	modelPath string,
	input, output onnxrt.InputOutputInfo,
	numThreads int,
) (*onnxrt.DynamicAdvancedSession, error) {
	opts, err := sessionOptions(numThreads)
	if err != nil {
		return nil, err
	}
	defer destroyOptions(opts)

	session, err := onnxrt.NewDynamicAdvancedSession(
		modelPath,
		[]string{input.Name},
		[]string{output.Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

func newDecoderSession(
	modelPath string,
	inputs []onnxrt.InputOutputInfo,
	output onnxrt.InputOutputInfo,
	numThreads int,
) (*onnxrt.DynamicAdvancedSession, error) {
	opts, err := sessionOptions(numThreads)
	if err != nil {
		return nil, err
	}
	defer destroyOptions(opts)

	session, err := onnxrt.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputs[0].Name, inputs[1].Name},
		[]string{output.Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}

func sessionOptions(numThreads int) (*onnxrt.SessionOptions, error) {
	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			destroyOptions(opts)
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}
	return opts, nil
}

func destroyOptions(opts *onnxrt.SessionOptions) {
	if err := opts.Destroy(); err != nil {
		fmt.Fprintf(os.Stderr, "Error destroying session options: %v\n", err)
	}
}

// Close releases both ONNX sessions.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.encoder != nil {
		if err := e.encoder.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying encoder session: %v\n", err)
		}
		e.encoder = nil
	}
	if e.decoder != nil {
		if err := e.decoder.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying decoder session: %v\n", err)
		}
		e.decoder = nil
	}
	return nil
}

// Vocab exposes the loaded vocabulary.
func (e *Engine) Vocab() *Vocab { return e.vocab }

// Infer recognizes the formula in img. The returned confidence is the mean
// chosen-token probability; callers should discard results below
// MinConfidence.
func (e *Engine) Infer(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.encoder == nil || e.decoder == nil {
		return nil, errors.New("engine is closed")
	}

	buf := e.imageTensor(img)
	defer mempool.PutFloat32(buf)

	memData, memShape, err := e.runEncoder(buf)
	if err != nil {
		return nil, err
	}

	stepper := &decoderStepper{engine: e, memData: memData, memShape: memShape}
	hyp, err := BeamSearch(ctx, stepper, e.config.Beam)
	if err != nil {
		return nil, fmt.Errorf("beam search: %w", err)
	}

	text := ApplyCorrections(e.vocab.Decode(hyp.Tokens))
	return &Result{
		LaTeX:      text,
		Confidence: SequenceConfidence(hyp.StepProbs),
		TokenProbs: hyp.StepProbs,
	}, nil
}

// Warmup runs a blank frame through the model so the first real request does
// not pay session initialization costs.
func (e *Engine) Warmup(ctx context.Context) error {
	blank := image.NewGray(image.Rect(0, 0, e.config.InputWidth, e.config.InputHeight))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	_, err := e.Infer(ctx, blank)
	return err
}

// imageTensor resizes img to the encoder input size and normalizes pixels to
// [-1, 1], replicating the gray channel when the model expects three.
func (e *Engine) imageTensor(img image.Image) []float32 {
	w, h := e.config.InputWidth, e.config.InputHeight
	resized := imaging.Resize(img, w, h, imaging.CatmullRom)
	gray := imaging.Grayscale(resized)

	plane := w * h
	buf := mempool.GetFloat32(e.channels * plane)
	for y := range h {
		for x := range w {
			r, _, _, _ := gray.At(x, y).RGBA()
			v := float32(r>>8)/127.5 - 1.0
			for c := range e.channels {
				buf[c*plane+y*w+x] = v
			}
		}
	}
	return buf
}

func (e *Engine) runEncoder(buf []float32) ([]float32, []int64, error) {
	shape := onnxrt.NewShape(1, int64(e.channels), int64(e.config.InputHeight), int64(e.config.InputWidth))
	inputTensor, err := onnxrt.NewTensor(shape, buf)
	if err != nil {
		return nil, nil, fmt.Errorf("create encoder input tensor: %w", err)
	}
	defer func() { _ = inputTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := e.encoder.Run([]onnxrt.Value{inputTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("encoder inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 encoder output, got %T", outputs[0])
	}

	// Copy out: the backing array dies with the output tensor.
	data := make([]float32, len(floatTensor.GetData()))
	copy(data, floatTensor.GetData())
	outShape := outputs[0].GetShape()
	memShape := make([]int64, len(outShape))
	copy(memShape, outShape)
	return data, memShape, nil
}

// decoderStepper runs one decoder forward pass per beam step, feeding the
// cached encoder memory alongside the token prefix.
type decoderStepper struct {
	engine   *Engine
	memData  []float32
	memShape []int64
}

func (s *decoderStepper) Step(ctx context.Context, prefix []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokBuf := mempool.GetInt64(len(prefix))
	defer mempool.PutInt64(tokBuf)
	copy(tokBuf, prefix)

	tokTensor, err := onnxrt.NewTensor(onnxrt.NewShape(1, int64(len(prefix))), tokBuf)
	if err != nil {
		return nil, fmt.Errorf("create token tensor: %w", err)
	}
	defer func() { _ = tokTensor.Destroy() }()

	memTensor, err := onnxrt.NewTensor(onnxrt.NewShape(s.memShape...), s.memData)
	if err != nil {
		return nil, fmt.Errorf("create memory tensor: %w", err)
	}
	defer func() { _ = memTensor.Destroy() }()

	outputs := []onnxrt.Value{nil}
	if err := s.engine.decoder.Run([]onnxrt.Value{tokTensor, memTensor}, outputs); err != nil {
		return nil, fmt.Errorf("decoder inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	floatTensor, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("expected float32 decoder output, got %T", outputs[0])
	}
	data := floatTensor.GetData()
	outShape := outputs[0].GetShape()

	// Logits shape is [1, prefixLen, vocab]; take the last position.
	vocabSize := int(outShape[len(outShape)-1])
	if len(data) < vocabSize {
		return nil, fmt.Errorf("decoder output too small: %d values for vocab %d", len(data), vocabSize)
	}
	logits := make([]float32, vocabSize)
	copy(logits, data[len(data)-vocabSize:])
	return logits, nil
}
