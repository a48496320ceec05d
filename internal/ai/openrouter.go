package ai

import "strings"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	p, err := newOpenAICompatible("openrouter", defaultOpenRouterBaseURL, args)
	if err != nil {
		return nil, err
	}
	extra := &openrouterConfig{}
	if err := decodeConfig(args, extra); err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(p.headers)+2)
	for k, v := range p.headers {
		headers[k] = v
	}
	if v := strings.TrimSpace(extra.HTTPReferer); v != "" {
		headers["HTTP-Referer"] = v
	}
	if v := strings.TrimSpace(extra.XTitle); v != "" {
		headers["X-Title"] = v
	}
	p.headers = headers
	return p, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
