package letter

// PendingLocks exposes the number of live request locks to tests
func (s *LetterService) PendingLocks() int {
	return s.pendingLocks()
}
