package rag

import (
	"fmt"
	"strings"
)

// MedicalDisclaimer is appended to every answer path that reaches the
// user without the model having seen the knowledge base, and to the
// severity warning.
const MedicalDisclaimer = `
⚠️ **IMPORTANT DISCLAIMER**
I am an AI assistant, NOT a doctor. The information provided is for educational purposes only and should not be considered medical advice. Always consult with a qualified healthcare professional for diagnosis and treatment. If you are experiencing a medical emergency, please call your local emergency services immediately.
`

// systemPrompt steers the model toward conversational consultations
// and away from list-shaped answers.
const systemPrompt = `You are a professional doctor conducting a medical consultation. Engage in a natural, conversational dialogue.

## Guidelines:
- Be direct and professional
- Suggest specific medications and treatment regimens from the knowledge base
- Ask relevant follow-up questions to better understand the patient's condition
- Keep responses concise and helpful
- Do NOT use headers, numbered steps, or bullet points

## Knowledge Base:
{context}

## Patient Question:
{question}

## Your Response:
1. Address the patient's current concern with specific recommendations
2. Ask ONE relevant follow-up question to gather more information
3. End with a brief disclaimer

⚠️ **DISCLAIMER**: This is informational only. See a doctor for medical advice.`

const userPrompt = `## Conversation History:
{conversation_history}

Context from medical knowledge base:
{context}

User's question/symptoms:
{question}`

// buildPrompt fills the consultation template with the retrieved
// context, the running history and the current question.
func buildPrompt(context, question, history string) string {
	replacer := strings.NewReplacer(
		"{context}", context,
		"{question}", question,
		"{conversation_history}", history,
	)
	return replacer.Replace(systemPrompt) + "\n\n" + replacer.Replace(userPrompt)
}

// severityWarning is returned instead of a generated answer when the
// query matches a severity keyword.
func severityWarning() string {
	return fmt.Sprintf(`
🚨 **IMPORTANT - SEEK MEDICAL ATTENTION**

Based on your symptoms, you should seek medical attention immediately.
Please contact your local emergency services or go to the nearest emergency room.

%s
`, MedicalDisclaimer)
}

// apologyResponse is the fallback when generation fails after retries.
func apologyResponse(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error processing your query: %v\n\n%s", err, MedicalDisclaimer)
}
