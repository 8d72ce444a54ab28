package program

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/naelab/papercast/pkg/tts"

	_ "embed"
)

//go:embed outline.gotmpl
var outlineTpl string

//go:embed extractor.gotmpl
var extractorTpl string

//go:embed script.gotmpl
var scriptTpl string

var (
	outlineTemplate   = template.Must(template.New("outline").Parse(outlineTpl))
	extractorTemplate = template.Must(template.New("extractor").Parse(extractorTpl))
	scriptTemplate    = template.Must(template.New("script").Parse(scriptTpl))
)

// programFeatures steers every writing stage away from the failure modes
// observed in generated programs.
const programFeatures = `# Characteristics of desirable programs
- Covering the details of the documents
- Explaining technical terms in detail, including academic definitions
- Accurately reflecting the content of the documents

# Characteristics of inappropriate programs
- Omitting content from the documents
- Including content that could be misleading
- Including topics unrelated to the content of the documents
- Using technical terms without explanations
- The host not properly citing the statements of the researchers
- Including content unrelated to the documents, such as commercials or previews of upcoming programs
- Including information not found in the documents, such as personal episodes of the researchers`

var outlineInstructions = map[Language]string{
	LanguageEnglish: `Think slowly and carefully.
# Objective
You are a radio program editor of an educational program, planning the
sections of a program that expertly explains the content of academic
documents.

# Input
Length of the program (number of turns)

# Output
The sections of a radio program: devise sections reflecting the structure of
the documents and output the title and contents of each section.

## Requirements for the output
- Section titles relate to the section titles of the documents.
- A section contains at least 8 turns.
- A section with fewer than 8 turns is merged into another section.
- A section contains at most 12 turns.
- Output in JSON format.`,
	LanguageJapanese: `ゆっくり丁寧に思考してください。
# 目的
あなたはラジオの教育番組の放送作家です。学術文書の内容を専門的に解説する番組の章立てを考えます。

# 入力
番組の長さ（ターンの数）

# 出力
研究を解説するラジオ番組の構成。文書の特徴を反映するようにコーナーを考案し、各コーナーのタイトルと内容を出力する。

## 出力の条件
- セクションのタイトルは文書の章立てに即している。
- 1つのセクションには最低8ターンが含まれる。
- 8ターン以下になる場合は、他のセクションと統合する。
- 1つのセクションは最大12ターンまでにする。
- json形式で出力する。`,
	LanguageKorean: `천천히 신중하게 사고해 주세요.
# 목적
당신은 교육방송 라디오의 방송작가입니다. 학술 문서의 내용을 전문적으로 해설하는 방송의 구성을 생각합니다.

# 입력
방송의 길이 (턴 수)

# 출력
연구를 해설하는 라디오 방송의 구성. 문서의 특징을 반영할 수 있도록 코너를 고안하여, 각 코너의 제목과 내용을 출력함.

## 출력 조건
- 섹션의 제목은 문서의 목차 구성에 들어맞을 것.
- 한 개의 섹션에는 최저 8개의 턴이 포함될 것.
- 8개 이하가 될 경우에는 다른 섹션과 통합할 것.
- 1개의 섹션은 최대 12턴까지로 할 것.
- JSON형식으로 출력할 것.`,
}

var scriptInstructions = map[Language]string{
	LanguageEnglish: `Think slowly and carefully.
# Objective
You are a script writer of an educational program. You write the script for
an episode that expertly explains the content of academic documents.

# Personality settings
- A professional radio personality.
- Acts as a listener making the author feel comfortable talking.
- Reacts to the conversation to make it natural.
- Rephrases the author's statements to emphasize the content.
- Gentle and polite tone, explains technical terms in an easy-to-understand way.
- Clear and logical tone. Leads the discussion while making it easy for listeners to follow.

# Researcher settings
- The researcher is an expert who explains the content of the documents in an easy-to-understand way.`,
	LanguageJapanese: `ゆっくり丁寧に思考してください。
# 役割
あなたはラジオの教育番組の放送作家です。学術文書の内容を専門的に解説する番組の台本を書きます。

# パーソナリティの設定
・ラジオパーソナリティのプロフェッショナルです。
・著者が気持ちよく話せるような聞き役として振る舞います。
・相槌を打つことで会話を自然なものにします。
・研究者の発言内容を言い換えることで内容を強調します。
・穏やかで丁寧なトーン、専門用語をわかりやすく解説する。
・クリアで論理的なトーン。議論をリードしつつ、リスナーが理解しやすいように工夫する。

# 研究者の設定
・研究者は文書の内容をわかりやすく説明する専門家です。`,
	LanguageKorean: `천천히 신중하게 사고해 주세요.
# 역할
당신은 교육방송 라디오의 방송작가입니다. 학술 문서의 내용을 전문적으로 해설하는 방송의 대본을 작성합니다.

# 퍼스널리티의 설정
・라디오 퍼스널리티의 프로페셔널입니다.
・저자가 기분 좋게 이야기할 수 있도록 하는 역할을 수행합니다.
・대화를 자연스럽게 만들기 위해 반응을 합니다.
・연구자의 발언 내용을 강조하기 위해 다시 말합니다.
・온화하고 정중한 톤, 전문 용어를 이해하기 쉽게 설명합니다.
・명확하고 논리적인 톤. 청취자가 이해하기 쉽도록 노력합니다.

# 연구자의 설정
・연구자는 문서의 내용을 이해하기 쉽게 설명하는 전문가입니다.`,
}

// scriptInput is one section's writing request: the current section to
// write, and the next section as read-only lookahead only.
type scriptInput struct {
	Author         string   `json:"author"`
	CurrentSection Section  `json:"currentSection"`
	NextSection    *Section `json:"nextSection,omitempty"`
}

// scriptOutput is the writer's response for one section.
type scriptOutput struct {
	Title     string `json:"title"`
	NextTitle string `json:"nextTitle,omitempty"`
	Turns     int    `json:"conversationTurns"`
	Script    []Turn `json:"script"`
}

// extraction is the envelope every extraction task answers with.
type extraction struct {
	Result string `json:"result"`
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func mustSchema[T any]() string {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return mustJSON(s)
}

var outlineExample = Outline{
	TotalTurns: 100,
	Sections: []Section{
		{
			Title: "Introduction and Overview of the Program",
			Turns: 12,
			Contents: []string{
				"Introduction to the topic.",
				"Summary of the research.",
				"Overview of what will be covered in the episode.",
			},
		},
		{
			Title: "Background and Importance of the Research",
			Turns: 10,
			Contents: []string{
				"Historical context and background of the study.",
				"Explanation of key concepts.",
				"Explanation of the importance of the study.",
			},
		},
		{
			Title: "Methods",
			Turns: 12,
			Contents: []string{
				"Explanation of the research methods used in this study.",
				"Details of data collection and analysis.",
				"Unique aspects of the study's methodology.",
			},
		},
		{
			Title: "Results and Core Findings",
			Turns: 12,
			Contents: []string{
				"Presentation of the core findings.",
				"In-depth analysis with examples from the research.",
			},
		},
		{
			Title: "Conclusions and Significance of the Research",
			Turns: 12,
			Contents: []string{
				"Summary of the findings and contributions to the literature.",
				"Practical implications.",
				"Limitations and suggestions for future research.",
			},
		},
	},
}

// OutlinePrompt builds the outline stage's standing instructions for the
// given language, with the output schema and one worked example embedded.
func OutlinePrompt(lang Language) string {
	return render(outlineTemplate, map[string]string{
		"Instructions": outlineInstructions[lang],
		"Label":        lang.Label(),
		"Schema":       mustSchema[Outline](),
		"Example":      mustJSON(outlineExample),
		"Features":     programFeatures,
	})
}

// ExtractorPrompt builds the metadata extraction stage's standing
// instructions. Extraction always answers with a single-result envelope.
func ExtractorPrompt() string {
	return render(extractorTemplate, map[string]string{
		"Schema":        mustSchema[extraction](),
		"ExampleAuthor": mustJSON(extraction{Result: "Ron Wakkary"}),
		"ExampleTitle":  mustJSON(extraction{Result: "Designing for an Engaging Visual Experience"}),
	})
}

// ScriptPrompt builds the script writer's standing instructions for the
// given language and cast.
func ScriptPrompt(lang Language, host, guest tts.Voice) string {
	intro := scriptInput{
		Author:         "John Doe",
		CurrentSection: outlineExample.Sections[0],
		NextSection:    &outlineExample.Sections[1],
	}
	middle := scriptInput{
		Author:         "John Doe",
		CurrentSection: outlineExample.Sections[2],
		NextSection:    &outlineExample.Sections[3],
	}
	end := scriptInput{
		Author:         "John Doe",
		CurrentSection: outlineExample.Sections[len(outlineExample.Sections)-1],
	}
	return render(scriptTemplate, map[string]string{
		"Instructions":       scriptInstructions[lang],
		"Label":              lang.Label(),
		"Host":               string(host),
		"Guest":              string(guest),
		"Features":           programFeatures,
		"InputSchema":        mustSchema[scriptInput](),
		"OutputSchema":       mustSchema[scriptOutput](),
		"InputExampleIntro":  mustJSON(intro),
		"InputExampleMiddle": mustJSON(middle),
		"InputExampleEnd":    mustJSON(end),
		"OutputExampleIntro": mustJSON(scriptOutput{
			Title:     intro.CurrentSection.Title,
			NextTitle: intro.NextSection.Title,
			Turns:     3,
			Script: []Turn{
				{Speaker: string(host), Voice: host, Text: "Welcome to the program. Today, we have John Doe with us to talk about his research. John, thank you for joining us."},
				{Speaker: "John Doe", Voice: guest, Text: "Thank you for having me."},
				{Speaker: string(host), Voice: host, Text: "Let's start with an overview of your research. Can you tell us about the main focus of your study?"},
			},
		}),
		"OutputExampleMiddle": mustJSON(scriptOutput{
			Title:     middle.CurrentSection.Title,
			NextTitle: middle.NextSection.Title,
			Turns:     2,
			Script: []Turn{
				{Speaker: string(host), Voice: host, Text: "Let's move on to the discussion of the insights gained from the fieldwork."},
				{Speaker: "John Doe", Voice: guest, Text: "Yes, there was an interesting relationship between skills and tools."},
			},
		}),
		"OutputExampleEnd": mustJSON(scriptOutput{
			Title: end.CurrentSection.Title,
			Turns: 2,
			Script: []Turn{
				{Speaker: "John Doe", Voice: guest, Text: "In conclusion, the results of the study suggest that..."},
				{Speaker: string(host), Voice: host, Text: "Thank you for joining us today. Our guest was John Doe."},
			},
		}),
	})
}

func render(tpl *template.Template, data map[string]string) string {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		panic(err)
	}
	return buf.String()
}
