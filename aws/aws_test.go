package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: sdkaws.String("m-1")}, nil
}

func TestSNSClient_Publish(t *testing.T) {
	api := &fakeSNS{}
	c := NewSNSClientWithAPI(api)

	err := c.Publish(context.Background(), "arn:topic", []byte(`{"a":1}`), map[string]string{"event_type": "enrollment_settled"})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "arn:topic", sdkaws.ToString(api.inputs[0].TopicArn))
	assert.Equal(t, `{"a":1}`, sdkaws.ToString(api.inputs[0].Message))
	assert.Equal(t, "enrollment_settled", sdkaws.ToString(api.inputs[0].MessageAttributes["event_type"].StringValue))
}

func TestSNSClient_PublishErrors(t *testing.T) {
	c := NewSNSClientWithAPI(&fakeSNS{err: errors.New("throttled")})

	assert.Error(t, c.Publish(context.Background(), "", []byte("x"), nil))
	err := c.Publish(context.Background(), "arn:topic", []byte("x"), nil)
	assert.ErrorContains(t, err, "throttled")
}

type fakeSecrets struct {
	calls  int
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[sdkaws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{"music/APP": `{"ACCESS_TOKEN_SECRET":"s3cret"}`}}
	c := NewSecretsClientWithAPI(api)

	m, err := c.GetSecretMap(context.Background(), "music/APP")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", m["ACCESS_TOKEN_SECRET"])

	_, err = c.GetSecret(context.Background(), "music/APP")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	_, err = c.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient_DisabledDropsData(t *testing.T) {
	api := &fakeCloudWatch{}
	m := NewMetricsClientWithAPI(api, "", false)

	require.NoError(t, m.RecordCount(context.Background(), MetricSettlementsSucceeded, nil))
	assert.Empty(t, api.inputs)
	assert.False(t, m.IsEnabled())

	var nilClient *MetricsClient
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricSettlementsSucceeded, nil))
}

func TestMetricsClient_Enabled(t *testing.T) {
	api := &fakeCloudWatch{}
	m := NewMetricsClientWithAPI(api, "", true)

	require.NoError(t, m.RecordValue(context.Background(), MetricSeatsEnrolled, 3, map[string]string{"Service": "school-of-music"}))
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "SchoolOfMusic", sdkaws.ToString(api.inputs[0].Namespace))
	assert.Equal(t, 3.0, sdkaws.ToFloat64(api.inputs[0].MetricData[0].Value))
	assert.Len(t, api.inputs[0].MetricData[0].Dimensions, 1)
}

type fakeLogs struct {
	groupErr error
	events   []cwltypes.InputLogEvent
	tokens   []*string
}

func (f *fakeLogs) CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogs) PutRetentionPolicy(ctx context.Context, in *cloudwatchlogs.PutRetentionPolicyInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeLogs) CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogs) PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.events = append(f.events, in.LogEvents...)
	f.tokens = append(f.tokens, in.SequenceToken)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: sdkaws.String("next")}, nil
}

func TestCloudWatchLogsClient_Write(t *testing.T) {
	api := &fakeLogs{groupErr: &cwltypes.ResourceAlreadyExistsException{}}
	c, err := NewCloudWatchLogsClientWithAPI(context.Background(), api, "", "school-of-music")
	require.NoError(t, err)

	n, err := c.Write([]byte("line one"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	_, _ = c.Write([]byte("line two"))

	require.Len(t, api.events, 2)
	assert.Equal(t, "line one", sdkaws.ToString(api.events[0].Message))
	assert.Nil(t, api.tokens[0])
	assert.Equal(t, "next", sdkaws.ToString(api.tokens[1]))
}

func TestCloudWatchLogsClient_GroupFailure(t *testing.T) {
	_, err := NewCloudWatchLogsClientWithAPI(context.Background(), &fakeLogs{groupErr: errors.New("denied")}, "", "svc")
	assert.Error(t, err)
}
