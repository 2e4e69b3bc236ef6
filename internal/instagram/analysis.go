package instagram

import "math"

type Analysis struct {
	FollowerToFollowingRatio float64 `json:"follower_to_following_ratio"`
	PostsPerFollower         float64 `json:"posts_per_follower"`
	CompletenessScore        int     `json:"profile_completeness_score"`
}

func Analyze(p *Profile) Analysis {
	var a Analysis
	if p.Followees > 0 {
		a.FollowerToFollowingRatio = roundTo(float64(p.Followers)/float64(p.Followees), 2)
	}
	if p.Followers > 0 {
		a.PostsPerFollower = roundTo(float64(p.PostsCount)/float64(p.Followers), 4)
	}
	a.CompletenessScore = completeness(p)
	return a
}

func completeness(p *Profile) int {
	score := 0
	if p.FullName != "" {
		score += 25
	}
	if p.Biography != "" {
		score += 25
	}
	if p.ExternalURL != "" {
		score += 25
	}
	if p.PostsCount > 0 {
		score += 25
	}
	return score
}

func roundTo(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
