package service

import "context"

type testTxRepos struct {
	documents      DocumentRepositoryInterface
	preprocessJobs PreprocessJobRepositoryInterface
	results        ResultRepositoryInterface
}

func (t *testTxRepos) Documents() DocumentRepositoryInterface {
	return t.documents
}

func (t *testTxRepos) PreprocessJobs() PreprocessJobRepositoryInterface {
	return t.preprocessJobs
}

func (t *testTxRepos) Results() ResultRepositoryInterface {
	return t.results
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
