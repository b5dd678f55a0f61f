package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/agrisense/internal/imageprocessor"
	"github.com/example/agrisense/internal/logging"
	"github.com/example/agrisense/internal/vision"
)

// Source tells who produced a diagnosis.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

// FailureKind mirrors vision.Kind for callers that only see an Outcome.
type FailureKind string

const (
	FailureTransient FailureKind = "transient"
	FailurePermanent FailureKind = "permanent"
)

// Failure describes why the classifier could not produce the diagnosis.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Outcome is the result of one analysis run. Failure is set whenever the
// classifier failed, including when the fallback supplied the diagnosis.
type Outcome struct {
	Diagnosis Diagnosis `json:"diagnosis"`
	Source    Source    `json:"source"`
	Failure   *Failure  `json:"failure,omitempty"`
}

// Analyzer runs the two-step crop identification and diagnosis pipeline.
type Analyzer struct {
	classifier      vision.Classifier
	fallback        *Fallback
	fallbackEnabled bool
	logger          *zap.Logger
}

// NewAnalyzer wires an Analyzer. When fallbackEnabled is false, classifier
// failures are returned to the caller instead of being replaced by a guess.
func NewAnalyzer(classifier vision.Classifier, fallback *Fallback, fallbackEnabled bool, logger *zap.Logger) *Analyzer {
	if fallback == nil {
		fallback = NewFallback(nil)
	}
	return &Analyzer{
		classifier:      classifier,
		fallback:        fallback,
		fallbackEnabled: fallbackEnabled,
		logger:          logger.Named("analyzer"),
	}
}

// Analyze identifies the crop in img and diagnoses its health. The returned
// error is non-nil only when the classifier failed and the fallback is
// disabled; it then wraps the classified vision error.
func (a *Analyzer) Analyze(ctx context.Context, requestID string, img imageprocessor.Image) (Outcome, error) {
	opLogger := logging.WithOperation(a.logger, "analysis.analyze", requestID)

	diagnosis, err := a.classify(ctx, img)
	if err == nil {
		return Outcome{Diagnosis: diagnosis, Source: SourceClassifier}, nil
	}

	failure := &Failure{Kind: FailureKind(vision.KindOf(err)), Message: err.Error()}
	if !a.fallbackEnabled {
		opLogger.Error("classifier failed", zap.Error(err), zap.String("kind", string(failure.Kind)))
		return Outcome{Failure: failure}, logging.NewOperationError("analysis.analyze", requestID, err)
	}

	opLogger.Warn("classifier failed, using fallback diagnosis", zap.Error(err), zap.String("kind", string(failure.Kind)))
	return Outcome{Diagnosis: a.fallback.Diagnose(), Source: SourceFallback, Failure: failure}, nil
}

func (a *Analyzer) classify(ctx context.Context, img imageprocessor.Image) (Diagnosis, error) {
	cropReply, err := a.classifier.Generate(ctx, vision.Request{Prompt: CropPrompt(), Image: img})
	if err != nil {
		return Diagnosis{}, err
	}
	crop := CleanCropName(cropReply)

	reply, err := a.classifier.Generate(ctx, vision.Request{Prompt: DiagnosisPrompt(crop), Image: img, JSON: true})
	if err != nil {
		return Diagnosis{}, err
	}
	return ParseDiagnosis(crop, reply), nil
}
