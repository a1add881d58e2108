package domain

// Prompt is a single structured-generation request.
type Prompt struct {
	System string
	User   string
}

// Field descriptions handed to the model alongside the contest schema.
const (
	DescContestTitle       = "Title of the contest"
	DescContestDescription = "Brief description of the contest"
	DescContestProblems    = "List of questions for the contest"
	DescOptionID           = "Option identifier (A, B, C, or D)"
	DescOptionText         = "The text of the option"
	DescQuestionTitle      = "A short, descriptive title for the problem"
	DescQuestionStatement  = "The full problem statement, including any necessary context"
	DescQuestionInputType  = "Type of input: 'mcq_single' or 'numeric'"
	DescQuestionOptions    = "List of 4 options for MCQ, empty for numeric"
	DescQuestionAnswer     = "The correct answer. For MCQ, it's the ID (A, B, C, or D). For numeric, it's the number as a string."
	DescQuestionPoints     = "Points for the question (e.g., 4)"
	DescQuestionDifficulty = "Difficulty: 'easy', 'medium', or 'hard'"
	DescQuestionSolution   = "Detailed step-by-step solution for the problem"
)
