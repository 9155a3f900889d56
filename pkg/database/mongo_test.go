package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIndexesDeclareNaturalKeyUniqueness(t *testing.T) {
	var found bool
	for _, spec := range indexSpecs() {
		if spec.collection != SelectionsCollection {
			continue
		}
		for _, model := range spec.models {
			keys, ok := model.Keys.(bson.D)
			require.True(t, ok)
			if len(keys) == 2 && keys[0].Key == "classId" && keys[1].Key == "studentEmail" {
				require.NotNil(t, model.Options.Unique)
				assert.True(t, *model.Options.Unique)
				found = true
			}
		}
	}
	assert.True(t, found, "selection natural key index missing")
}

func TestIndexesCoverAllCollections(t *testing.T) {
	names := map[string]bool{}
	for _, spec := range indexSpecs() {
		names[spec.collection] = true
		assert.NotEmpty(t, spec.models)
	}
	assert.True(t, names[UsersCollection])
	assert.True(t, names[ClassesCollection])
	assert.True(t, names[SelectionsCollection])
}
