package database

// AudienceCount is the number of learnings stored for one audience segment.
type AudienceCount struct {
	Audience string
	Count    int
}

// Stats contains aggregate learning store statistics.
type Stats struct {
	Total     int
	Hooks     int
	Audiences []AudienceCount
}

// GetStats returns counts over the stored learnings.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM learnings").Scan(&s.Total); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(DISTINCT insight) FROM learnings WHERE type = 'hook'").Scan(&s.Hooks); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
SELECT audience_segment, COUNT(*) FROM learnings
GROUP BY audience_segment ORDER BY COUNT(*) DESC, audience_segment`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a AudienceCount
		if err := rows.Scan(&a.Audience, &a.Count); err != nil {
			return nil, err
		}
		s.Audiences = append(s.Audiences, a)
	}
	return s, rows.Err()
}
