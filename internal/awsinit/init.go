// Package awsinit bootstraps AWS configuration and tracing for the
// Lambda handlers.
package awsinit

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda/xrayconfig"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Result carries the loaded AWS configuration and the tracer provider
// set up for this process.
type Result struct {
	Config         aws.Config
	TracerProvider *sdktrace.TracerProvider
}

// Init loads AWS configuration and installs an X-Ray-propagated
// tracer provider as the global provider.
func Init(ctx context.Context) (*Result, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	tp, err := xrayconfig.NewTracerProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("init tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)

	return &Result{Config: cfg, TracerProvider: tp}, nil
}

// Start runs the Lambda runtime with the handler instrumented for
// tracing. It does not return.
func (r *Result) Start(handler any) {
	lambda.Start(otellambda.InstrumentHandler(handler, xrayconfig.WithRecommendedOptions(r.TracerProvider)...))
}
