package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

// InvokeOptions 单次推理调用的生成参数
type InvokeOptions struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// InvokeResult 推理服务的返回: 生成文本与令牌消耗
type InvokeResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Invoker 推理服务接口: prompt 进、文本出，同步调用，可能耗时数十秒
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error)
	ModelID() string
}

// bedrockAPI 抽出 SDK 子集便于测试
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient AWS Bedrock (Nova) 推理客户端
type BedrockClient struct {
	api     bedrockAPI
	modelID string
}

func NewBedrockClient(api *bedrockruntime.Client, modelID string) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID}
}

func (c *BedrockClient) ModelID() string { return c.modelID }

// --- Nova 消息体 ---

type novaMessage struct {
	Role    string        `json:"role"`
	Content []novaContent `json:"content"`
}

type novaContent struct {
	Text string `json:"text"`
}

type novaInferenceConfig struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	TopP        float32 `json:"topP"`
}

type novaRequest struct {
	Messages        []novaMessage       `json:"messages"`
	InferenceConfig novaInferenceConfig `json:"inferenceConfig"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaContent `json:"content"`
		} `json:"message"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
	} `json:"usage"`
}

// Invoke 调用 Bedrock InvokeModel API
func (c *BedrockClient) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (*InvokeResult, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4000
	}
	if opts.TopP <= 0 {
		opts.TopP = 0.9
	}

	body, err := json.Marshal(novaRequest{
		Messages: []novaMessage{
			{Role: "user", Content: []novaContent{{Text: prompt}}},
		},
		InferenceConfig: novaInferenceConfig{
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			TopP:        opts.TopP,
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, classifyInvokeError(err)
	}

	var resp novaResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("无法解析模型响应: %w", err)
	}
	if len(resp.Output.Message.Content) == 0 {
		return nil, errors.New("模型响应中没有文本内容")
	}

	var text string
	for i, part := range resp.Output.Message.Content {
		if i > 0 {
			text += "\n"
		}
		text += part.Text
	}

	log.Printf("📊 Token 消耗 - 输入: %d, 输出: %d", resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return &InvokeResult{
		Text:         text,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// classifyInvokeError 按错误码划分瞬时 / 致命
//
// 限流、模型超时、服务不可用视为瞬时；请求参数错误说明是
// 调用方的 prompt 构造问题，立即失败。
func classifyInvokeError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ModelTimeoutException", "ServiceUnavailableException", "ModelNotReadyException", "InternalServerException":
			return &RetryableError{Err: err}
		case "ValidationException":
			return fmt.Errorf("请求参数无效: %w", err)
		default:
			return err
		}
	}
	// 非 API 错误按网络抖动处理
	return &RetryableError{Err: err}
}
