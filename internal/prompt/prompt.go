// Package prompt builds every LLM prompt used by the service. Builders are
// pure string functions: all variability comes from their inputs, with the
// one exception of the randomized question-style selection, which takes an
// explicit rand source so tests can pin it.
package prompt

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/preppal/interview-prep-ai/internal/domain"
)

// questionStyles are the aspects a question set is asked to cover. A random
// subset keeps consecutive generations from converging on the same questions.
var questionStyles = []string{
	"conceptual understanding questions",
	"practical implementation questions",
	"problem-solving scenarios",
	"code analysis questions",
	"architecture and design questions",
	"edge cases and error handling",
	"performance optimization questions",
	"real-world application scenarios",
}

// SelectStyles picks up to min(4, n) question styles at random.
func SelectStyles(rng *rand.Rand, n int) []string {
	shuffled := make([]string, len(questionStyles))
	copy(shuffled, questionStyles)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	k := 4
	if n < k {
		k = n
	}
	if k > len(shuffled) {
		k = len(shuffled)
	}
	return shuffled[:k]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Questions builds the question-generation prompt. The resume block is only
// emitted when a summary is present; missing summary fields fall back to the
// request's role and experience or to "Not specified".
func Questions(req domain.GenerationRequest, styles []string) string {
	topics := strings.Join(req.FocusTopics, ", ")

	var resumeContext string
	if req.Resume != nil {
		r := req.Resume
		resumeContext = fmt.Sprintf(`
RESUME INFORMATION (use this to personalize questions):
- Role from Resume: %s
- Experience from Resume: %s
- Skills: %s
- Education: %s
- Projects: %s

IMPORTANT: Generate questions that are relevant to the candidate's actual skills and experience from their resume.`,
			orDefault(r.Role, req.Role),
			orDefault(r.Experience, req.ExperienceYears),
			orDefault(strings.Join(r.Skills, ", "), "Not specified"),
			orDefault(r.Education, "Not specified"),
			orDefault(strings.Join(r.Projects, "; "), "Not specified"))
	}

	technical := req.Kind == domain.InterviewTechnical
	interviewType := "interview"
	interviewerKind := ""
	typeContext := "Include a mix of technical questions, behavioral questions, and practical scenarios."
	behavioralMix := "- Behavioral questions about past experiences\n   - Questions about projects and achievements"
	if technical {
		interviewType = "technical interview"
		interviewerKind = "technical "
		typeContext = "Focus on deep technical questions, coding challenges, system design, and problem-solving scenarios."
		behavioralMix = ""
	}

	personalize := ""
	if req.Resume != nil {
		personalize = "Personalize questions based on the candidate's resume - reference their specific skills, projects, and experience when relevant."
	}

	return fmt.Sprintf(`You are an expert %sinterviewer creating diverse interview questions for a %s position.

CONTEXT:
- Role: %s
- Candidate Experience Level: %s years
- Focus Topics: %s
- Number of Questions Needed: %d
- Interview Type: %s
%s

CRITICAL REQUIREMENTS FOR VARIETY:
1. Generate %d UNIQUE and DIVERSE questions - each question must be different from common interview questions
2. Cover different aspects: %s
3. Vary difficulty levels appropriately for %s years of experience
4. %s
5. %s
6. Include a mix of:
   - Theoretical/conceptual questions
   - Practical coding/implementation questions
   - Real-world scenario-based questions
   - Problem-solving questions
   - Design/architecture questions (if applicable)
   %s
7. Each question should test different concepts within %s
8. Avoid generic or commonly repeated interview questions - be creative and specific
9. Questions should be relevant to actual %s interview scenarios

QUESTION FORMAT REQUIREMENTS:
- Each question must be clear, specific, and interview-appropriate
- Questions should progressively cover different aspects of %s
- Make questions practical and applicable to real work scenarios
- Include questions that test both breadth and depth of knowledge

ANSWER FORMAT REQUIREMENTS:
- For each question, provide a comprehensive, detailed answer
- Answers should be beginner-friendly but thorough
- Include code examples where relevant (use proper code blocks)
- Use bullet points for clarity
- Answers should demonstrate the expected level of understanding for %s years of experience

Return ONLY valid JSON (no markdown, no backticks, no extra text) with this exact structure:
[
  {
    "question": "Unique, specific interview question here",
    "answer": "Detailed answer with explanations, examples, and code if needed."
  },
  {
    "question": "Another unique question covering a different aspect",
    "answer": "Comprehensive answer for this question."
  }
  ... (exactly %d questions total)
]

IMPORTANT:
- Generate %d DISTINCT questions - no duplicates or variations of the same question
- Each question must cover different concepts or aspects
- Questions should be diverse in style and focus
- Return ONLY the JSON array, nothing else`,
		interviewerKind, req.Role,
		req.Role, req.ExperienceYears, topics, req.QuestionCount, interviewType, resumeContext,
		req.QuestionCount, strings.Join(styles, ", "), req.ExperienceYears, typeContext, personalize,
		behavioralMix, topics, req.Role, topics, req.ExperienceYears,
		req.QuestionCount, req.QuestionCount)
}

// ConceptExplanation builds the prompt for explaining one interview question.
func ConceptExplanation(question string) string {
	return fmt.Sprintf(`You are an AI trained to generate explanation for a given interview question.
    Task:
    - Explain the following interview question and its concept in depth as if you're teaching a developer.
    - Question: "%s"
    - After the explanation, provide a short and clear title that summarizes the concept for the article or page header.
    - If the explanation includes a code example, provide a small code block.
    - Keep the formatting very clean and clear with bullet points.
    - Return the result as a valid JSON object in the following format:
    {
      "title": "Short title here",
      "explanation": "Explanation here."
    }
    Important: DO NOT add any extra text outside the JSON format. Only return valid  clean, readable text.`, question)
}

// ParseResume builds the prompt that turns raw resume text into a structured
// summary.
func ParseResume(resumeText string) string {
	return fmt.Sprintf(`You are an expert resume parser. Extract key information from the following resume text and return it as structured JSON.

RESUME TEXT:
%s

Extract and return ONLY valid JSON (no markdown, no backticks) with this exact structure:
{
  "extractedRole": "The job title or role mentioned in the resume (e.g., 'Frontend Developer', 'Full Stack Engineer')",
  "extractedExperience": "Total years of experience (e.g., '3 years', '5+ years')",
  "extractedSkills": ["Skill 1", "Skill 2", "Skill 3", ...],
  "extractedEducation": "Education details (degree, university, etc.)",
  "extractedProjects": ["Project 1 description", "Project 2 description", ...],
  "rawText": "A cleaned version of the resume text"
}

IMPORTANT:
- Extract all technical skills, programming languages, frameworks, and tools mentioned
- Extract all relevant projects with brief descriptions
- If experience is not explicitly stated, estimate based on work history
- Return ONLY the JSON object, nothing else`, resumeText)
}

// Evaluation builds the scoring prompt for a substantive answer.
func Evaluation(questionText, correctAnswer, userAnswer string) string {
	return fmt.Sprintf(`You are an expert interview evaluator.
Evaluate the USER_ANSWER primarily on its own quality, using the CORRECT_ANSWER only as a reference for key ideas.
Do NOT do line-by-line or exact-phrase comparison. Give full credit for alternate phrasing or equivalent explanations.
Be lenient: if the meaning is correct, award the points.

IMPORTANT:
- If USER_ANSWER is completely unrelated to the question or shows fundamental misunderstanding, mark as "Wrong"
- If USER_ANSWER is partially correct but missing key points, mark as "Partially Correct"
- If USER_ANSWER is fully correct (covers all key concepts), mark as "Correct"

Mark strictly using this scheme (max 100):
1. Content Accuracy – 40 max (40 fully correct, 30 mostly correct, 20 partial, 10 minimal, 0 incorrect).
2. Clarity & Structure – 20 max (20 well structured, 10 somewhat clear, 0 confusing).
3. Depth of Explanation – 20 max (20 deep, 10 basic, 0 shallow).
4. Examples / Use Cases – 10 max (10 relevant example, 0 none; simple examples count).
5. Communication & Confidence – 10 max (10 confident/understandable, 0 hesitant; ignore accent/grammar; don't penalize filler words).

Reward:
- Capturing the same meaning even with different wording.
- Relevant real-life or practical examples.
- In-depth reasoning, trade-offs, edge cases.
Penalize only when the concept is misunderstood or very shallow.

QUESTION: %s
CORRECT_ANSWER (reference only): %s
USER_ANSWER: %s

Return ONLY valid JSON (no backticks) with this shape.
- CRITICAL: For ALL answers (Correct, Partially Correct, or Wrong), you MUST analyze what specific concepts, points, or details the user missed or could have mentioned. Do NOT give generic feedback.
- "missingConcepts" MUST ALWAYS list SPECIFIC concepts, topics, or key points:
  * For "Wrong" answers: List ALL key concepts from the correct answer that were missing
  * For "Partially Correct" answers: List SPECIFIC concepts/points that were missed (not generic statements)
  * For "Correct" answers: List concepts that could have been mentioned to strengthen the answer further, or additional depth/edge cases that could be discussed. If the answer is truly comprehensive, list at least 1-2 concepts that could add more depth.
- "interviewImpactFeedback" MUST explicitly state what the user missed and why it matters. For example: "You missed [specific concept X] which is critical because [reason]. In an interview, this would show lack of understanding of [topic]."
- IMPORTANT:
  * "missingConcepts" MUST NEVER be an empty array - always provide at least 1-2 specific concepts, even for correct answers (as improvement suggestions)
  * Examples of specific concepts: "Closure in JavaScript", "Event Loop mechanism", "Promise chaining", "Async/await error handling", "Memory management considerations" - NOT generic terms like "JavaScript concepts"
The JSON shape:
{
  "evaluation": "Correct" | "Partially Correct" | "Wrong",
  "explanation": "Short justification that clearly mentions what was missing if anything was missing. Be specific about what concepts were not covered. For partially correct answers, explicitly state what was good and what was missing.",
  "categoryScores": {
    "contentAccuracy": 0-40,
    "clarityStructure": 0-20,
    "depth": 0-20,
    "examples": 0-10,
    "communication": 0-10
  },
  "totalScore": 0-100,
  "keyConceptsMentioned": ["concept1", "concept2"],
  "missingConcepts": ["specific missing concept 1", "specific missing concept 2"],
  "usedRealLifeExamples": true or false,
  "isCoherent": true or false,
  "interviewImpactFeedback": "2-4 sentences that compare USER_ANSWER vs CORRECT_ANSWER. Explicitly state what specific concepts or points the user missed (e.g., 'You missed [X concept] which is important because [Y reason]'). Explain how this could affect an interview outcome. Be specific and actionable - do not use generic phrases like 'good attempt'."
}`, questionText, correctAnswer, userAnswer)
}

// SkippedEvaluation builds the prompt used when the answer is empty or too
// short to evaluate. It asks the model to mine the correct answer for the
// concepts the candidate should have covered.
func SkippedEvaluation(questionText, correctAnswer string) string {
	return fmt.Sprintf(`You are an expert interview evaluator analyzing a question that was skipped or had no meaningful answer.

QUESTION: %s
CORRECT_ANSWER: %s

The user did not provide an answer or provided a very short/incomplete answer.

Your task:
1. Analyze the CORRECT_ANSWER and identify ALL specific key concepts, topics, and important points that should have been covered
2. Extract specific technical concepts, not generic terms
3. List what the user missed in a detailed, actionable way

Return ONLY valid JSON (no backticks) with this exact structure:
{
  "evaluation": "Skipped",
  "explanation": "No answer was provided. Based on the correct answer, here are the key concepts you should have covered: [list 2-3 main concepts]",
  "categoryScores": {
    "contentAccuracy": 0,
    "clarityStructure": 0,
    "depth": 0,
    "examples": 0,
    "communication": 0
  },
  "totalScore": 0,
  "keyConceptsMentioned": [],
  "missingConcepts": ["specific concept 1", "specific concept 2", "specific concept 3", ...],
  "usedRealLifeExamples": false,
  "isCoherent": false,
  "interviewImpactFeedback": "You skipped this question. The correct answer covers [specific concepts]. In a real interview, skipping questions can signal lack of preparation. Review the correct answer and practice explaining these concepts: [list the specific concepts]."
}

CRITICAL:
- "missingConcepts" MUST list SPECIFIC technical concepts from the correct answer (e.g., "Closure in JavaScript", "Event Loop mechanism", "Promise chaining", "Async/await error handling", "Memory management", "Time complexity analysis")
- Do NOT use generic phrases like "All key concepts" or "JavaScript concepts"
- Extract at least 3-5 specific concepts/topics from the correct answer
- Be specific and actionable`, questionText, correctAnswer)
}

// Analysis builds the full-session analysis prompt from the answered
// questions, serialized as indented JSON for the model.
func Analysis(answers []domain.AnsweredQuestion) string {
	summary, _ := json.MarshalIndent(answers, "", "  ")
	return fmt.Sprintf(`You are an expert interview coach analyzing a complete interview session.

Analyze all the questions and answers provided below. Your task is to:
1. Identify STRONG CONCEPTS - concepts the candidate consistently demonstrated understanding of across multiple answers
2. Identify AREAS FOR IMPROVEMENT - concepts, topics, or skills the candidate missed, struggled with, or needs to work on

Be specific and actionable. Focus on technical concepts, not just general feedback.

Interview Summary:
%s

Return ONLY valid JSON (no backticks) with this exact structure:
{
  "strongConcepts": ["concept1", "concept2", "concept3"],
  "areasForImprovement": ["area1", "area2", "area3"],
  "strongConceptsSuggestions": "2-3 sentences explaining how the candidate can leverage these strengths in future interviews",
  "improvementSuggestions": "2-3 sentences with actionable advice on how to improve in the identified weak areas"
}

Important:
- strongConcepts should be specific technical concepts (e.g., "React Hooks", "Async/Await", "Database Indexing")
- areasForImprovement should be specific topics or concepts that need work
- Keep arrays to 3-5 items each, focusing on the most important ones
- Suggestions should be practical and actionable`, summary)
}

// quizContextEntry is the trimmed per-answer view embedded into quiz prompts.
type quizContextEntry struct {
	Question             string   `json:"question"`
	UserAnswer           string   `json:"userAnswer"`
	CorrectAnswer        string   `json:"correctAnswer"`
	Score                int      `json:"score"`
	MissingConcepts      []string `json:"missingConcepts"`
	KeyConceptsMentioned []string `json:"keyConceptsMentioned"`
}

// Quiz builds the remedial-quiz prompt. At most five answered questions are
// embedded as context to keep the prompt bounded.
func Quiz(missedConcepts, topics []string, answers []domain.AnsweredQuestion) string {
	topicsLine := "General"
	if len(topics) > 0 {
		topicsLine = strings.Join(topics, ", ")
	}

	var interviewContext string
	if len(answers) > 0 {
		limited := answers
		if len(limited) > 5 {
			limited = limited[:5]
		}
		entries := make([]quizContextEntry, 0, len(limited))
		for _, a := range limited {
			entries = append(entries, quizContextEntry{
				Question:             a.Question,
				UserAnswer:           a.UserAnswer,
				CorrectAnswer:        a.CorrectAnswer,
				Score:                a.Score,
				MissingConcepts:      a.MissingConcepts,
				KeyConceptsMentioned: a.KeyConceptsMentioned,
			})
		}
		blob, _ := json.MarshalIndent(entries, "", "  ")
		interviewContext = fmt.Sprintf("\n\nInterview Context (for reference):\n%s", blob)
	}

	return fmt.Sprintf(`You are an expert interview quiz creator. Generate exactly 5 multiple-choice quiz questions based on the user's interview performance.

The user recently completed an interview and missed several concepts. Your task is to create practice questions that:
1. Are directly related to the interview questions they answered
2. Focus on the specific concepts they missed
3. Help them improve for future interviews
4. Test understanding at an interview-appropriate level

Missed Concepts: %s
Topics: %s%s

IMPORTANT REQUIREMENTS:
- Generate EXACTLY 5 questions (no more, no less)
- Each question should be interview-style (similar to technical interview questions)
- Questions should test understanding of the missed concepts in practical, interview-relevant scenarios
- Each question must have exactly 4 multiple-choice options (A, B, C, D)
- Each question must have exactly ONE correct answer
- The 3 incorrect options should be plausible distractors that test common misunderstandings
- Questions should be related to the interview context provided above
- Make questions practical and applicable to real interview scenarios

Return ONLY valid JSON (no backticks) with this exact structure:
[
  {
    "question": "Question text here (interview-style, practical scenario)",
    "options": {
      "A": "Option A text",
      "B": "Option B text",
      "C": "Option C text",
      "D": "Option D text"
    },
    "correctAnswer": "A" | "B" | "C" | "D",
    "explanation": "Brief explanation of why the correct answer is correct and how it relates to the interview concept",
    "concept": "The specific concept from the missed concepts list that this question tests"
  },
  ... (exactly 4 more questions)
]`, strings.Join(missedConcepts, ", "), topicsLine, interviewContext)
}

// Extraction instructions for resume uploads that need a multimodal pass.
const (
	DocExtractInstruction   = "Extract all text from this resume/document. Return only the text content, no formatting or explanations."
	ImageExtractInstruction = "Extract all text from this document. Return only the text content."
)
