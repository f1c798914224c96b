package metrics

import (
	"context"
	"time"

	"cloud.google.com/go/compute/metadata"
	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	monitoredrespb "google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/protobuf/types/known/timestamppb"

	"gblaquiere.dev/billing-disabler/model"
	outcome_state "gblaquiere.dev/billing-disabler/model/outcome-state"
)

const metricType = "custom.googleapis.com/billing_disabler/outcomes"

// Recorder counts disable outcomes in Cloud Monitoring. A nil *Recorder is a
// no-op, callers never have to guard their calls.
type Recorder struct {
	client    *monitoring.MetricClient
	projectID string
}

// New returns a nil Recorder outside GCP, metric emission only makes sense
// next to the Cloud Logging and billing control planes.
func New(ctx context.Context) (*Recorder, error) {
	if !metadata.OnGCE() {
		return nil, nil
	}

	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, err
	}
	client, err := monitoring.NewMetricClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Recorder{client: client, projectID: projectID}, nil
}

// Record writes one counter point per outcome status present in the report.
// A recording failure is the caller's to log, it must never change the
// invocation disposition.
func (r *Recorder) Record(ctx context.Context, report *model.DisableReport) error {
	if r == nil {
		return nil
	}

	counts := map[outcome_state.Status]int64{}
	for _, outcome := range report.Outcomes {
		counts[outcome.Status]++
	}

	end := timestamppb.New(time.Now())
	var series []*monitoringpb.TimeSeries
	for status, count := range counts {
		series = append(series, &monitoringpb.TimeSeries{
			Metric: &metricpb.Metric{
				Type: metricType,
				Labels: map[string]string{
					"billing_account_id": report.BillingAccountID,
					"status":             string(status),
				},
			},
			Resource: &monitoredrespb.MonitoredResource{
				Type:   "global",
				Labels: map[string]string{"project_id": r.projectID},
			},
			Points: []*monitoringpb.Point{{
				Interval: &monitoringpb.TimeInterval{EndTime: end},
				Value: &monitoringpb.TypedValue{
					Value: &monitoringpb.TypedValue_Int64Value{Int64Value: count},
				},
			}},
		})
	}

	req := &monitoringpb.CreateTimeSeriesRequest{
		Name:       "projects/" + r.projectID,
		TimeSeries: series,
	}
	return r.client.CreateTimeSeries(ctx, req)
}

func (r *Recorder) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
