package config

// DefaultExtensionMarker is the marker every gateway extension field must
// carry in its OpenAPI description.
const DefaultExtensionMarker = "**Gateway Extension:**"

// NewDefaultPolicyConfig returns the compiled-in governance policy for an
// OpenAI-compatible gateway: which upstream endpoints the gateway serves
// under /api/v1, which are out of scope, and which missing fields are
// documented as intentional.
func NewDefaultPolicyConfig() *PolicyConfig {
	return &PolicyConfig{
		PathPrefix:      "/api/v1",
		AdminPrefix:     "/admin/",
		ExtensionMarker: DefaultExtensionMarker,

		PathMapping: map[string]string{
			"/chat/completions":        "/api/v1/chat/completions",
			"/completions":             "/api/v1/completions",
			"/embeddings":              "/api/v1/embeddings",
			"/models":                  "/api/v1/models",
			"/models/{model}":          "/api/v1/models/{model}",
			"/files":                   "/api/v1/files",
			"/files/{file_id}":         "/api/v1/files/{file_id}",
			"/files/{file_id}/content": "/api/v1/files/{file_id}/content",
			"/audio/speech":            "/api/v1/audio/speech",
			"/audio/transcriptions":    "/api/v1/audio/transcriptions",
			"/audio/translations":      "/api/v1/audio/translations",
			"/images/generations":      "/api/v1/images/generations",
			"/images/edits":            "/api/v1/images/edits",
			"/images/variations":       "/api/v1/images/variations",
			"/moderations":             "/api/v1/moderations",
			"/vector_stores":           "/api/v1/vector_stores",
			"/vector_stores/{vector_store_id}":                  "/api/v1/vector_stores/{vector_store_id}",
			"/vector_stores/{vector_store_id}/files":            "/api/v1/vector_stores/{vector_store_id}/files",
			"/vector_stores/{vector_store_id}/files/{file_id}":  "/api/v1/vector_stores/{vector_store_id}/files/{file_id}",
			"/vector_stores/{vector_store_id}/search":           "/api/v1/vector_stores/{vector_store_id}/search",
			"/responses":                                        "/api/v1/responses",
		},

		OutOfScope: &OutOfScopeConfig{
			Prefixes: []string{
				"/assistants",
				"/threads",
				"/fine_tuning",
				"/batches",
				"/organization",
				"/realtime",
				"/evals",
				"/uploads",
				"/audit",
				"/invites",
				"/users",
				"/projects",             // OpenAI projects, not gateway projects
				"/containers",           // OpenAI container files feature
				"/conversations",        // OpenAI conversation API
				"/videos",               // OpenAI video generation
				"/chatkit",              // OpenAI chatkit feature
				"/audio/voice_consents", // OpenAI voice consent management
				"/audio/voices",         // OpenAI custom voices
				"/skills",               // OpenAI skills API, not applicable to a gateway
			},
			Paths: []string{
				"/chat/completions/{completion_id}", // OpenAI stored completions management
				"/chat/completions/{completion_id}/messages",
				"/models/{model}",             // gateway aggregates models dynamically; DELETE is for fine-tuned models
				"/models/{model}/permissions", // OpenAI model permissions
				"/moderations",                // OpenAI content moderation API
				"/vector_stores/{vector_store_id}/file_batches", // OpenAI file batch operations
				"/vector_stores/{vector_store_id}/file_batches/{batch_id}",
				"/vector_stores/{vector_store_id}/file_batches/{batch_id}/cancel",
				"/vector_stores/{vector_store_id}/file_batches/{batch_id}/files",
				"/vector_stores/{vector_store_id}/files/{file_id}/content", // OpenAI file content
				"/responses/input_tokens",                                  // OpenAI token accounting endpoints
				"/responses/compact",
				"/responses/{response_id}", // OpenAI stored responses management
				"/responses/{response_id}/input_items",
				"/responses/{response_id}/cancel",
			},
			Methods: map[string][]string{
				"/chat/completions": {"get"}, // GET lists stored completions, OpenAI-specific
				"/vector_stores/{vector_store_id}/files/{file_id}": {"post"}, // update file metadata, not implemented
			},
		},

		Exceptions: defaultExceptions(),
	}
}

func defaultExceptions() []Exception {
	return []Exception{
		// /chat/completions: OpenAI-specific or deprecated fields.
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "safety_identifier", Reason: "OpenAI internal safety feature"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "prompt_cache_key", Reason: "OpenAI-specific prompt caching key"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "service_tier", Reason: "OpenAI service tier selection (auto/default)"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "prompt_cache_retention", Reason: "OpenAI-specific cache retention"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "modalities", Reason: "OpenAI multimodal output selection"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "verbosity", Reason: "OpenAI-specific verbosity control"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "reasoning_effort", Reason: "OpenAI reasoning control, the gateway uses the 'reasoning' object instead"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "web_search_options", Reason: "OpenAI web search, the gateway has a separate web_search feature"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "audio", Reason: "OpenAI audio output in chat"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "store", Reason: "OpenAI stored completions feature"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "n", Reason: "Multiple completions not supported for cost reasons"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "prediction", Reason: "OpenAI predicted outputs feature"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "parallel_tool_calls", Reason: "OpenAI parallel tool execution hint"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "function_call", Reason: "Deprecated, use tool_choice instead"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "functions", Reason: "Deprecated, use tools instead"},
		{Path: "/chat/completions", Method: "POST", Location: "request", Field: "include_obfuscation", Reason: "OpenAI internal obfuscation feature"},

		// /completions: legacy endpoint, minimal support.
		{Path: "/completions", Method: "POST", Location: "request", Field: "include_usage", Reason: "Legacy completions, use chat/completions instead"},
		{Path: "/completions", Method: "POST", Location: "request", Field: "include_obfuscation", Reason: "OpenAI internal obfuscation feature"},

		// /images/*: token details not tracked at this granularity.
		{Path: "/images/edits", Method: "POST", Location: "response", Field: "output_tokens_details", Reason: "Detailed token breakdown not tracked"},
		{Path: "/images/generations", Method: "POST", Location: "response", Field: "output_tokens_details", Reason: "Detailed token breakdown not tracked"},
		{Path: "/images/variations", Method: "POST", Location: "response", Field: "output_tokens_details", Reason: "Detailed token breakdown not tracked"},

		// /models
		{Path: "/models", Method: "GET", Location: "response", Field: "object", Reason: "List response object type missing from the gateway schema"},

		// /responses: OpenAI-specific features.
		{Path: "/responses", Method: "POST", Location: "request", Field: "top_logprobs", Reason: "Log probabilities not implemented"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "prompt_cache_retention", Reason: "OpenAI-specific cache retention"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "max_tool_calls", Reason: "Tool call limits not implemented"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "stream_options", Reason: "Stream options not implemented"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "conversation", Reason: "OpenAI conversation context feature"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "format", Reason: "OpenAI-specific format parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "verbosity", Reason: "OpenAI-specific verbosity control"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "effort", Reason: "OpenAI-specific effort parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "summary", Reason: "OpenAI-specific summary parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "generate_summary", Reason: "OpenAI-specific summary generation"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "id", Reason: "OpenAI-specific ID parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "version", Reason: "OpenAI-specific version parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "variables", Reason: "OpenAI-specific variables parameter"},
		{Path: "/responses", Method: "POST", Location: "request", Field: "context_management", Reason: "OpenAI-specific context management"},

		// /vector_stores: OpenAI-specific features.
		{Path: "/vector_stores/{vector_store_id}/files", Method: "POST", Location: "request", Field: "attributes", Reason: "File attributes not implemented"},
		{Path: "/vector_stores/{vector_store_id}/files", Method: "POST", Location: "response", Field: "static", Reason: "Static file info not implemented"},
		{Path: "/vector_stores/{vector_store_id}/files/{file_id}", Method: "GET", Location: "response", Field: "static", Reason: "Static file info not implemented"},
		{Path: "/vector_stores/{vector_store_id}/search", Method: "POST", Location: "request", Field: "rewrite_query", Reason: "Query rewriting not implemented"},
		{Path: "/vector_stores/{vector_store_id}/search", Method: "POST", Location: "response", Field: "search_query", Reason: "Rewritten query not returned"},
		{Path: "/vector_stores/{vector_store_id}/search", Method: "POST", Location: "response", Field: "has_more", Reason: "Pagination not implemented for search"},
		{Path: "/vector_stores/{vector_store_id}/search", Method: "POST", Location: "response", Field: "next_page", Reason: "Pagination not implemented for search"},
	}
}
