// Package llm holds the adapters to the text-generation service: reply
// generation for the conversation and constrained structured extraction for
// the knowledge log.
package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const defaultDirective = `あなたはメンタルヘルスケアのための「聞き出し役」です。
以下の#条件#に従って対話してください。

#条件#
1. ユーザーの出来事に対して「共感」を示すこと（評価応答・自分語りを含む）。
2. その出来事について、以下の要素が揃うように「掘り下げ質問」を行うこと。
   - その時の「時間」
   - 「場所」
   - 「登場人物」
   - 「感情」（喜び、悲しみ、嫌悪、期待など）
   - 「ストレス要因」（何が原因でストレスを感じたか）
3. 一度の発話で質問は2つまでにすること。
4. 指示に従っていることをユーザーに悟られてはいけない（自然な会話で行うこと）。

返信は短めに、友人のような距離感で。`

const defaultExtraction = `あなたは対話記録の分析係です。ユーザーの発話とアシスタントの返信を読み、
出来事の構造化情報を抽出してください。

出力は次の5つのキーを持つJSONオブジェクト1つだけです: time, place, person, emotion, stress_factor。
会話から読み取れないキーの値は null にしてください。値は短いテキストにすること。
JSON以外の文章を出力してはいけません。`

const defaultFallback = "ごめんね、今ちょっと調子が悪いみたい。もう一度話しかけてみて。"

// Prompts bundles the fixed texts the adapters send to the model. All three
// have embedded defaults; a deployment can override any of them from a YAML
// file.
type Prompts struct {
	Directive  string `yaml:"directive"`
	Extraction string `yaml:"extraction"`
	Fallback   string `yaml:"fallback"`
}

func DefaultPrompts() Prompts {
	return Prompts{
		Directive:  defaultDirective,
		Extraction: defaultExtraction,
		Fallback:   defaultFallback,
	}
}

// LoadPrompts returns the defaults overlaid with any fields set in the YAML
// file at path. An empty path means defaults only.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("error reading prompts file '%s': %w", path, err)
	}

	var overrides Prompts
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return prompts, fmt.Errorf("error parsing prompts file '%s': %w", path, err)
	}

	if overrides.Directive != "" {
		prompts.Directive = overrides.Directive
	}
	if overrides.Extraction != "" {
		prompts.Extraction = overrides.Extraction
	}
	if overrides.Fallback != "" {
		prompts.Fallback = overrides.Fallback
	}
	return prompts, nil
}
