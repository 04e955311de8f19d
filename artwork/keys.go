package artwork

import (
	"fmt"
	"strconv"

	"github.com/artfetch/artfetch/utils"
)

// Store key layout. Per-object entries form a cache/failure/lock triple keyed
// by object id; compound query keys are hashed.
func objectKey(objectID int) string {
	return fmt.Sprintf("met_object_%d", objectID)
}

func lockKey(objectID int) string {
	return fmt.Sprintf("met_object_lock_%d", objectID)
}

func listingKey(highlightsOnly bool, departmentID *int) string {
	key := "met_objectIDs_hasImages"
	if highlightsOnly {
		key = "met_objectIDs_highlights"
	}
	if departmentID != nil {
		key = fmt.Sprintf("%s_dept_%d", key, *departmentID)
	}
	return key
}

func pageKey(page, perPage int, highlightsOnly bool, departmentID *int) string {
	return "met_objects_" + utils.HashKey(
		strconv.Itoa(page),
		strconv.Itoa(perPage),
		strconv.FormatBool(highlightsOnly),
		intPtrLabel(departmentID),
	)
}

func searchKey(query string, page, perPage int, departmentID *int, isHighlight *bool) string {
	return "met_search_" + utils.HashKey(
		query,
		strconv.Itoa(page),
		strconv.Itoa(perPage),
		intPtrLabel(departmentID),
		boolPtrLabel(isHighlight),
	)
}

const departmentsKey = "met_departments"

func intPtrLabel(v *int) string {
	if v == nil {
		return "any"
	}
	return strconv.Itoa(*v)
}

func boolPtrLabel(v *bool) string {
	if v == nil {
		return "any"
	}
	return strconv.FormatBool(*v)
}
