// Package templates loads the read-only segment template catalog from its
// configured source: built-in defaults, a local JSON file, or an S3 object.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/audience-engine/internal/config"
	"github.com/ignite/audience-engine/internal/segmentation"
)

// Load returns the template catalog for the configured source. The catalog is
// ordered and read-only; converting a template to a segment is the engine's
// concern.
func Load(ctx context.Context, cfg config.TemplatesConfig, registry *segmentation.Registry) ([]segmentation.SegmentTemplate, error) {
	switch cfg.Type {
	case "", "builtin":
		return Builtin(registry), nil
	case "local":
		return loadLocal(cfg.LocalPath)
	case "s3":
		return loadS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown template source %q", cfg.Type)
}

func loadLocal(path string) ([]segmentation.SegmentTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template catalog: %w", err)
	}
	return parse(data)
}

func loadS3(ctx context.Context, cfg config.TemplatesConfig) ([]segmentation.SegmentTemplate, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	bucket, key := cfg.S3Bucket, cfg.S3Key
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("fetch template catalog s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read template catalog body: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]segmentation.SegmentTemplate, error) {
	var catalog []segmentation.SegmentTemplate
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	return catalog, nil
}

// Builtin returns the default seed templates. Labels are stamped against the
// given registry so template criteria render the same as user-built ones.
func Builtin(registry *segmentation.Registry) []segmentation.SegmentTemplate {
	stamp := func(c segmentation.Criterion) segmentation.Criterion {
		c.Label = segmentation.DescribeCriterion(c, registry)
		return c
	}

	return []segmentation.SegmentTemplate{
		{
			ID:          "hot-leads",
			Name:        "Hot Leads",
			Description: "High-score leads still in play",
			Color:       "#ef4444",
			Criteria: []segmentation.Criterion{
				stamp(segmentation.Criterion{
					Field:    "lead_score",
					Operator: segmentation.OpGreaterThan,
					Value:    segmentation.ScalarValue{Value: "70"},
				}),
				stamp(segmentation.Criterion{
					Field:    "status",
					Operator: segmentation.OpNotEquals,
					Value:    segmentation.ScalarValue{Value: "closed_lost"},
				}),
			},
		},
		{
			ID:          "recent-leads",
			Name:        "Recent Leads",
			Description: "Leads created in the last 30 days",
			Color:       "#3b82f6",
			Criteria: []segmentation.Criterion{
				stamp(segmentation.Criterion{
					Field:    "created_at",
					Operator: segmentation.OpInLastDays,
					Value:    segmentation.RelativeWindowValue{Days: 30},
				}),
			},
		},
		{
			ID:          "metro-buyers",
			Name:        "Metro Buyers",
			Description: "Leads from Delhi and Mumbai looking at apartments",
			Color:       "#10b981",
			Criteria: []segmentation.Criterion{
				stamp(segmentation.Criterion{
					Field:    "city",
					Operator: segmentation.OpIn,
					Value:    segmentation.SetValue{Values: []string{"delhi", "mumbai"}},
				}),
				stamp(segmentation.Criterion{
					Field:    "property_type",
					Operator: segmentation.OpIn,
					Value:    segmentation.SetValue{Values: []string{"apartment"}},
				}),
			},
		},
		{
			ID:          "gone-cold",
			Name:        "Gone Cold",
			Description: "Qualified leads not contacted recently",
			Color:       "#6b7280",
			Criteria: []segmentation.Criterion{
				stamp(segmentation.Criterion{
					Field:    "status",
					Operator: segmentation.OpEquals,
					Value:    segmentation.ScalarValue{Value: "qualified"},
				}),
				stamp(segmentation.Criterion{
					Field:    "lead_score",
					Operator: segmentation.OpBetween,
					Value:    segmentation.NumericRangeValue{Min: 30, Max: 70},
				}),
			},
		},
	}
}
