package ai

import (
	"resumegenius/internal/config"

	"google.golang.org/genai"
)

func stringList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

func analysisSchema() *genai.Schema {
	section := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":            {Type: genai.TypeString},
			"originalText":     {Type: genai.TypeString},
			"feedback":         {Type: genai.TypeString},
			"suggestedRewrite": {Type: genai.TypeString},
			"score":            {Type: genai.TypeInteger},
		},
		Required: []string{"title", "originalText", "feedback", "suggestedRewrite", "score"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overallScore":       {Type: genai.TypeInteger},
			"summary":            {Type: genai.TypeString},
			"impactMetricsScore": {Type: genai.TypeInteger},
			"keywordsMissing":    stringList(),
			"sections":           {Type: genai.TypeArray, Items: section},
		},
		Required: []string{"overallScore", "summary", "sections", "keywordsMissing", "impactMetricsScore"},
	}
}

func structuredResumeSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

	header := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":     str(),
			"title":    str(),
			"email":    str(),
			"phone":    str(),
			"location": str(),
			"linkedin": str(),
			"website":  str(),
		},
		Required: []string{"name", "title", "email", "phone", "location"},
	}
	experience := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"company":   str(),
			"position":  str(),
			"dateRange": str(),
			"location":  str(),
			"bullets":   stringList(),
		},
		Required: []string{"company", "position", "dateRange", "location", "bullets"},
	}
	education := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"school":    str(),
			"degree":    str(),
			"dateRange": str(),
			"location":  str(),
		},
		Required: []string{"school", "degree", "dateRange", "location"},
	}
	skills := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"category": str(),
			"items":    stringList(),
		},
		Required: []string{"category", "items"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"header":     header,
			"summary":    str(),
			"experience": {Type: genai.TypeArray, Items: experience},
			"education":  {Type: genai.TypeArray, Items: education},
			"skills":     {Type: genai.TypeArray, Items: skills},
		},
		Required: []string{"header", "summary", "experience", "education", "skills"},
	}
}

// rewriteSchema wraps the document in {content: ...} for either schema version
func rewriteSchema(version string) *genai.Schema {
	content := &genai.Schema{
		Type:        genai.TypeString,
		Description: "The full, perfectly formatted text of the new resume",
	}
	if version != config.SchemaFlat {
		content = structuredResumeSchema()
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"content": content},
		Required:   []string{"content"},
	}
}

// generationConfig builds a JSON-mode request config
func generationConfig(schema *genai.Schema, cfg *config.OperationAIConfig) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if cfg.Temperature != nil && *cfg.Temperature > 0 {
		t := *cfg.Temperature
		gc.Temperature = &t
	}
	return gc
}
