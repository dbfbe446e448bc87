//go:build component
// +build component

package component

func (s *ComponentTestSuite) TestDraftIsPrivate() {
	given, when, then := s.gherkin()

	given().
		anAuthorAndAFollower()

	when().
		theAuthorDraftsARecipe()

	then().
		theDraftIsHiddenFromTheFollower().
		thePublicListingIsEmpty()
}

func (s *ComponentTestSuite) TestPublishRecipe() {
	given, when, then := s.gherkin()

	given().
		aDraftRecipe()

	when().
		theAuthorPublishesTheRecipe()

	then().
		thePublicListingContainsTheRecipe().
		theFollowerFeedContainsTheRecipe().
		theRecipeWillEventuallyBeIndexed().
		theFollowerWillEventuallyBeNotified()
}

func (s *ComponentTestSuite) TestDeleteRecipe() {
	given, when, then := s.gherkin()

	given().
		aDraftRecipe().
		theAuthorPublishesTheRecipe().
		theRecipeWillEventuallyBeIndexed()

	when().
		theAuthorDeletesTheRecipe()

	then().
		thePublicListingIsEmpty().
		theRecipeWillEventuallyLeaveTheIndex()
}
