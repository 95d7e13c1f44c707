package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketOf(t *testing.T) {
	assert.Equal(t, High, BucketOf(0.85))
	assert.Equal(t, Medium, BucketOf(0.60))
	assert.Equal(t, Low, BucketOf(0.59))
}

func TestScoreCappedAtOne(t *testing.T) {
	score, evidence := Score("What curves are available for well 15_9-13 and which are related to it?")
	assert.LessOrEqual(t, score, 1.0)
	assert.NotEmpty(t, evidence)
}

func TestScoreRelationshipQuery(t *testing.T) {
	score, _ := Score("What curves are available for well 15_9-13?")
	assert.GreaterOrEqual(t, score, 0.60)
}

func TestScoreUnrelatedQuery(t *testing.T) {
	score, _ := Score("hello")
	assert.Less(t, score, 0.60)
}

func TestCheckScopeOutOfDomain(t *testing.T) {
	sc := CheckScope("Who won the 2024 election?")
	assert.False(t, sc.InScope)
	assert.NotEmpty(t, sc.Reason)
}

func TestCheckScopeInDomain(t *testing.T) {
	sc := CheckScope("What curves are available for well 15_9-13?")
	assert.True(t, sc.InScope)
}

func TestDetectAggregation(t *testing.T) {
	assert.Equal(t, AggregationCount, DetectAggregation("How many wells are in the dataset?"))
	assert.Equal(t, AggregationList, DetectAggregation("List all wells"))
	assert.Equal(t, AggregationDistinct, DetectAggregation("What are the distinct curve types?"))
	assert.Equal(t, AggregationNone, DetectAggregation("Define porosity"))
}

func TestIsStructuredExtraction(t *testing.T) {
	assert.True(t, IsStructuredExtraction("What is the well name for 15_9-13?"))
	assert.False(t, IsStructuredExtraction("Define porosity"))
}

func TestGlossaryTriggerAndExclusion(t *testing.T) {
	exclusions := []string{"how many", "well name for", "curve"}
	assert.True(t, IsGlossaryTrigger("Define porosity"))
	assert.True(t, IsGlossaryTrigger("What is the well name for 15_9-13?"))
	assert.True(t, IsExcluded("What is the well name for 15_9-13?", exclusions))
	assert.False(t, IsExcluded("Define porosity", exclusions))
}
