package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for LLM and batch spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMMethod   = attribute.Key("llm.method")
	AttrLLMMessages = attribute.Key("llm.messages")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrErrorKind = attribute.Key("error.kind")

	AttrItemStatus = attribute.Key("batch.item.status")
	AttrItemKind   = attribute.Key("batch.item.kind")
	AttrItemLength = attribute.Key("batch.item.content_length")
)
