// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package answer

import "strings"

// DeclineMessage is the fixed answer returned whenever the pipeline
// abstains. Callers can rely on it verbatim.
const DeclineMessage = "I don't know that yet based on the current knowledge base."

// promptTemplate instructs the model to answer only from the supplied
// context and to refuse with a literal "I don't know." otherwise.
const promptTemplate = `You are a careful assistant. Answer ONLY from the context below.
If the answer is not present, reply exactly: "I don't know."

Context:
%s

Question: %s
Answer concisely. Provide a short phrase or sentence.
`

// refusalReply is the literal fallback the prompt instructs the model
// to produce when the context does not hold the answer.
const refusalReply = "I don't know."

// isRefusal reports whether a generated reply is the prompt's literal
// refusal, allowing for surrounding quotes and casing drift.
func isRefusal(reply string) bool {
	reply = strings.Trim(strings.TrimSpace(reply), `"`)
	return strings.EqualFold(reply, refusalReply)
}

// buildContext joins chunk texts with blank lines, dropping whole
// chunks once the character budget is exceeded. At least one chunk is
// always included so the gate, not the budget, decides abstention.
func buildContext(chunks []string, maxChars int) string {
	var sb strings.Builder
	for i, chunk := range chunks {
		text := strings.TrimSpace(chunk)
		if text == "" {
			continue
		}
		if i > 0 && sb.Len() > 0 && sb.Len()+len(text)+2 > maxChars {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}
