package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

type fakeBedrock struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeBedrock) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

const novaReply = `{
  "output": {"message": {"content": [{"text": "## 会议基本信息\n**会议主题**: 评审"}]}},
  "usage": {"inputTokens": 1234, "outputTokens": 567}
}`

func TestInvokeBuildsNovaRequest(t *testing.T) {
	api := &fakeBedrock{body: novaReply}
	c := &BedrockClient{api: api, modelID: "amazon.nova-pro-v1:0"}

	res, err := c.Invoke(context.Background(), "提取会议信息", InvokeOptions{Temperature: 0.3})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.InputTokens != 1234 || res.OutputTokens != 567 {
		t.Fatalf("tokens = %d/%d", res.InputTokens, res.OutputTokens)
	}
	if res.Text == "" {
		t.Fatal("empty text")
	}

	if got := aws.ToString(api.input.ModelId); got != "amazon.nova-pro-v1:0" {
		t.Fatalf("model id = %q", got)
	}
	var req novaRequest
	if err := json.Unmarshal(api.input.Body, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content[0].Text != "提取会议信息" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	// 未指定的参数取默认值
	if req.InferenceConfig.MaxTokens != 4000 || req.InferenceConfig.TopP != 0.9 {
		t.Fatalf("inference config = %+v", req.InferenceConfig)
	}
	if req.InferenceConfig.Temperature != 0.3 {
		t.Fatalf("temperature = %v", req.InferenceConfig.Temperature)
	}
}

func TestInvokeEmptyContent(t *testing.T) {
	api := &fakeBedrock{body: `{"output":{"message":{"content":[]}},"usage":{}}`}
	c := &BedrockClient{api: api, modelID: "m"}
	if _, err := c.Invoke(context.Background(), "p", InvokeOptions{}); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestClassifyInvokeError(t *testing.T) {
	retryableCodes := []string{"ThrottlingException", "ModelTimeoutException", "ServiceUnavailableException", "ModelNotReadyException", "InternalServerException"}
	for _, code := range retryableCodes {
		err := classifyInvokeError(&smithy.GenericAPIError{Code: code})
		var re *RetryableError
		if !errors.As(err, &re) {
			t.Errorf("%s should be retryable, got %v", code, err)
		}
	}

	err := classifyInvokeError(&smithy.GenericAPIError{Code: "ValidationException"})
	var re *RetryableError
	if errors.As(err, &re) {
		t.Error("ValidationException must be fatal")
	}

	// 网络层错误按瞬时处理
	err = classifyInvokeError(errors.New("connection reset"))
	if !errors.As(err, &re) {
		t.Errorf("network error should be retryable, got %v", err)
	}
}
