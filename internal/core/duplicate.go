package core

// CheckDuplicate reports whether candidateItemID already appears in existingItemIDs.
// The caller excludes the line being edited from existingItemIDs. An empty
// selection (0) is never a duplicate.
func CheckDuplicate(candidateItemID int, existingItemIDs []int) bool {
	if candidateItemID == 0 {
		return false
	}
	for _, id := range existingItemIDs {
		if id == candidateItemID {
			return true
		}
	}
	return false
}
