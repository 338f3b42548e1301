package elasticsearch

// DefaultIndexName is the index used for medicine documents when none is
// configured.
const DefaultIndexName = "pharmacy_medicines"

// indexMapping analyzes names with an edge n-gram subfield so partial words
// typed at the till still match.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lower": { "type": "custom", "filter": ["lowercase"] }
      },
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":          { "type": "keyword" },
      "name":        { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "supplier":    { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "batch_id":    { "type": "keyword", "normalizer": "lower" },
      "expire_date": { "type": "date", "format": "yyyy-MM-dd" },
      "price":       { "type": "scaled_float", "scaling_factor": 100 },
      "quantity":    { "type": "integer" }
    }
  }
}`
